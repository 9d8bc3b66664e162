package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	repo "github.com/oksasatya/tripdesk/internal/domain/repository"
)

// EntityService is the CRUD service shared by every schema-described resource.
// The actor is the authenticated user; it may be nil on public reads of unowned resources.
type EntityService struct {
	Repo   repo.EntityRepository
	Logger *logrus.Logger
}

func NewEntityService(r repo.EntityRepository, logger *logrus.Logger) *EntityService {
	return &EntityService{Repo: r, Logger: logger}
}

func (s *EntityService) Schema() *entity.Schema { return s.Repo.Schema() }

func (s *EntityService) owned() bool { return s.Repo.Schema().Owned() }

// guard checks the actor against the owner of rec.
func (s *EntityService) guard(actor *entity.User, rec entity.Record) error {
	if !s.owned() {
		return nil
	}
	if actor == nil {
		return ErrUnauthenticated
	}
	if !CanAccess(actor, s.Schema().OwnerOf(rec)) {
		return ErrForbidden
	}
	return nil
}

func (s *EntityService) Create(ctx context.Context, actor *entity.User, input map[string]any) (entity.Record, error) {
	schema := s.Schema()
	if s.owned() {
		if actor == nil {
			return nil, ErrUnauthenticated
		}
		input = ClaimOwnership(actor, schema, input)
	}
	rec, err := schema.Construct(input)
	if err != nil {
		return nil, err
	}
	created, err := s.Repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, created.ID())
}

func (s *EntityService) Get(ctx context.Context, actor *entity.User, id int64) (entity.Record, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard(actor, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *EntityService) List(ctx context.Context, actor *entity.User, filter entity.Filter) ([]entity.Record, error) {
	if s.owned() {
		if actor == nil {
			return nil, ErrUnauthenticated
		}
		filter = ScopeFilter(actor, s.Schema(), filter)
	}
	return s.Repo.List(ctx, filter)
}

// Update merges partial into the stored record and writes it back.
// On a failed write the merged copy is discarded and the stored row is unchanged.
func (s *EntityService) Update(ctx context.Context, actor *entity.User, id int64, partial map[string]any) (entity.Record, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard(actor, rec); err != nil {
		return nil, err
	}
	if s.owned() {
		partial = GuardOwnerChange(actor, s.Schema(), partial)
	}
	if err := s.Schema().Merge(rec, partial); err != nil {
		return nil, err
	}
	if _, err := s.Repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, id)
}

func (s *EntityService) Delete(ctx context.Context, actor *entity.User, id int64) error {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard(actor, rec); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

// BulkCreate creates each item independently; one failure does not stop the rest.
func (s *EntityService) BulkCreate(ctx context.Context, actor *entity.User, items []map[string]any) BulkResult {
	res := newBulkResult()
	for i, item := range items {
		if _, err := s.Create(ctx, actor, item); err != nil {
			s.logItem("bulk create", i, err)
			res.fail(i, err)
			continue
		}
		res.ok()
	}
	return res
}

// Restore upserts items by natural key: an existing match is merged and updated,
// anything else is created. Running it twice over the same items leaves the same rows.
// Ids and lookup fields in the input are ignored.
func (s *EntityService) Restore(ctx context.Context, items []map[string]any) BulkResult {
	res := newBulkResult()
	for i, item := range items {
		if err := s.restoreOne(ctx, item); err != nil {
			s.logItem("restore", i, err)
			res.fail(i, err)
			continue
		}
		res.ok()
	}
	return res
}

func (s *EntityService) restoreOne(ctx context.Context, item map[string]any) error {
	schema := s.Schema()
	input := make(map[string]any, len(item))
	for k, v := range item {
		if k != "id" {
			input[k] = v
		}
	}
	candidate, err := schema.Construct(input)
	if err != nil {
		return err
	}
	if key, ok := schema.NaturalKeyOf(candidate); ok {
		existing, err := s.Repo.FindByNaturalKey(ctx, key)
		switch {
		case err == nil:
			if err := schema.Merge(existing, input); err != nil {
				return err
			}
			_, err = s.Repo.Update(ctx, existing)
			return err
		case !errors.Is(err, entity.ErrNotFound):
			return err
		}
	}
	_, err = s.Repo.Create(ctx, candidate)
	return err
}

func (s *EntityService) logItem(op string, index int, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithFields(logrus.Fields{
		"resource": s.Schema().Name,
		"index":    index,
	}).Debug(op + " item failed")
}
