package repository

import (
	"context"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
)

// UserRepository defines the store operations for users.
//
// Implementations must enforce email uniqueness atomically and report
// violations as apperror.KindConflict; missing rows are apperror.KindNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	// List returns users ordered by creation time, newest first.
	List(ctx context.Context, offset, limit int) ([]entity.User, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
