package repository

import (
	"context"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

// EntityRepository is the single persistence contract shared by every
// schema-described resource. Every write runs in its own transaction.
type EntityRepository interface {
	Schema() *entity.Schema
	Create(ctx context.Context, rec entity.Record) (entity.Record, error)
	Get(ctx context.Context, id int64) (entity.Record, error)
	List(ctx context.Context, filter entity.Filter) ([]entity.Record, error)
	// Update writes every column of rec. rec is not rolled back on failure.
	Update(ctx context.Context, rec entity.Record) (entity.Record, error)
	Delete(ctx context.Context, id int64) error
	FindByNaturalKey(ctx context.Context, key entity.Filter) (entity.Record, error)
}
