package participant

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
	MaxFieldLength = 200
)

// Role tags. A participant's role describes how they relate to the organization.
const (
	RoleParticipant = "participant"
	RoleVolunteer   = "volunteer"
	RoleDonor       = "donor"
	RoleMentor      = "mentor"
)

// ValidRoles lists every accepted role tag.
var ValidRoles = []string{RoleParticipant, RoleVolunteer, RoleDonor, RoleMentor}

// DateLayout is the form and storage layout for dates of birth.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptyFirstName = errors.New("first name cannot be empty")
	ErrEmptyLastName  = errors.New("last name cannot be empty")
	ErrNameTooLong    = errors.New("names cannot exceed 100 characters")
	ErrEmptyEmail     = errors.New("email cannot be empty")
	ErrInvalidEmail   = errors.New("email must contain '@'")
	ErrEmailTooLong   = errors.New("email cannot exceed 254 characters")
	ErrInvalidRole    = errors.New("role must be one of: participant, volunteer, donor, mentor")
	ErrFieldTooLong   = errors.New("contact fields cannot exceed 200 characters")
	ErrBirthInFuture  = errors.New("date of birth cannot be in the future")
)

// Participant is a person tracked by the organization.
// TotalDonationsCents is a cache maintained alongside donation writes.
type Participant struct {
	ID                  int64
	FirstName           string
	LastName            string
	Email               string
	Phone               string
	DateOfBirth         time.Time
	Role                string
	City                string
	State               string
	Zip                 string
	SchoolOrEmployer    string
	FieldOfInterest     string
	TotalDonationsCents int64
	CreatedAt           time.Time
}

// Validate checks if the Participant has valid data.
// PRE: Participant struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Participant) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if strings.TrimSpace(p.LastName) == "" {
		return ErrEmptyLastName
	}
	if len(p.FirstName) > MaxNameLength || len(p.LastName) > MaxNameLength {
		return ErrNameTooLong
	}
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmptyEmail
	}
	if len(p.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidRole(p.Role) {
		return ErrInvalidRole
	}
	for _, f := range []string{p.Phone, p.City, p.State, p.Zip, p.SchoolOrEmployer, p.FieldOfInterest} {
		if len(f) > MaxFieldLength {
			return ErrFieldTooLong
		}
	}
	if !p.DateOfBirth.IsZero() && p.DateOfBirth.After(time.Now()) {
		return ErrBirthInFuture
	}
	return nil
}

// FullName joins first and last name.
func (p Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
