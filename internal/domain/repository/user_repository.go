package repository

import (
	"context"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

// UserRepository persists users. Lookups return entity.ErrNotFound when absent,
// Create returns a duplicate key persistence error when the uid is taken.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUID(ctx context.Context, uid string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
}
