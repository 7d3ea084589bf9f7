package participant

import (
	"context"

	domain "ellarises/internal/domain/participant"
)

// Store persists Participant state.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Participant, error)
	GetByEmail(ctx context.Context, email string) (domain.Participant, error)
	Create(ctx context.Context, p domain.Participant) (int64, error)
	Update(ctx context.Context, p domain.Participant) error
	Delete(ctx context.Context, id int64) error
	Dependents(ctx context.Context, id int64) (Dependents, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Participant, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search string // matches name or email
	Role   string
	Sort   string // column key from SortColumns
	Desc   bool
	Limit  int
	Offset int
}

// SortColumns maps accepted sort keys to SQL expressions.
var SortColumns = map[string]string{
	"name":      "last_name, first_name",
	"email":     "email",
	"role":      "role",
	"donations": "total_donations_cents",
	"created":   "created_at",
}

// Dependents counts rows that reference a participant.
type Dependents struct {
	Milestones    int
	Donations     int
	Registrations int
}

// Any reports whether anything still references the participant.
func (d Dependents) Any() bool {
	return d.Milestones+d.Donations+d.Registrations > 0
}
