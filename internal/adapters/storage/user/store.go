package user

import (
	"context"

	domain "ellarises/internal/domain/user"
)

// Store persists User state.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (int64, error)
	Update(ctx context.Context, u domain.User) error
	LinkParticipant(ctx context.Context, userID, participantID int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]domain.User, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search string
	Level  string
	Limit  int
	Offset int
}
