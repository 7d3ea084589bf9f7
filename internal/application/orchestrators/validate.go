package orchestrators

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/application/apperr"
)

// MsgAllFieldsRequired is shown whenever a required form field is blank.
const MsgAllFieldsRequired = "All fields are required"

// MsgEmailInUse is shown when an email already belongs to another row.
const MsgEmailInUse = "That email is already in use"

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkInput runs the struct tags on in. Any failed required tag collapses to
// MsgAllFieldsRequired; other failures name the first offending field.
func checkInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Store("Unable to read the form", err)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return apperr.Validation(MsgAllFieldsRequired)
		}
	}
	return apperr.Validation(fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "email":
		return "Enter a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return "Passwords do not match"
	case "number", "numeric":
		return name + " must be a number"
	case "datetime":
		return name + " is not a valid date"
	case "min", "max", "gte", "lte":
		return name + " is out of range"
	}
	return name + " is invalid"
}

// label turns a Go field name into form text: "DateOfBirth" becomes "Date of birth".
func label(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// invalid turns a domain rule violation into a user-facing validation error.
func invalid(err error) error {
	msg := err.Error()
	if msg == "" {
		return apperr.Validation("Invalid input")
	}
	r := []rune(msg)
	r[0] = unicode.ToUpper(r[0])
	return apperr.Validation(string(r))
}

// storeFailure maps a store error to NotFound when the row is missing and to a
// Store error carrying "Unable to <action>" otherwise.
func storeFailure(err error, what, action string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Store("Unable to "+action, err)
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation(field + " must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

func parseOptionalDate(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return parseDate(raw, field)
}

// parseDateTime reads a datetime-local form value in the server's zone.
func parseDateTime(raw, layout, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(layout, raw, time.Local)
	if err != nil {
		return time.Time{}, apperr.Validation(field + " is not a valid date and time")
	}
	return t, nil
}

func parseInt(raw, field string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(field + " must be a whole number")
	}
	return n, nil
}

func parseOptionalInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return parseInt(raw, field)
}

// parseRef reads a row id chosen in a form select.
func parseRef(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Choose a " + what)
	}
	return id, nil
}
