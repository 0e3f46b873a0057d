package users

import (
	"context"
	"errors"

	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateSubject is returned by Create when a user with the same
	// subject already exists.
	ErrDuplicateSubject = errors.New("user subject already exists")
)

// Repository defines persistence operations for users. Implementations
// enforce subject uniqueness in storage so Create is safe to call
// concurrently.
type Repository interface {
	FindBySub(ctx context.Context, sub string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, id, name, picture string) error
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
}
