package memory

import (
	"context"
	"reflect"
	"sort"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/internal/domain/repository"
)

type EntityRepository struct {
	store  *Store
	schema *entity.Schema
}

func (r *EntityRepository) Schema() *entity.Schema { return r.schema }

func (r *EntityRepository) table() *table {
	return r.store.tables[r.schema.Table]
}

// violates reports whether rec collides with another row on a declared unique constraint.
func (r *EntityRepository) violates(rec entity.Record, except int64) bool {
	for _, cols := range r.schema.Unique {
		for id, row := range r.table().rows {
			if id == except {
				continue
			}
			same := true
			for _, c := range cols {
				if !reflect.DeepEqual(row[c], rec[c]) {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

func (r *EntityRepository) stored(rec entity.Record) entity.Record {
	out := make(entity.Record, len(r.schema.Fields)+1)
	out["id"] = rec["id"]
	for _, f := range r.schema.Fields {
		out[f.Name] = rec[f.Name]
	}
	return out
}

func (r *EntityRepository) read(row entity.Record) entity.Record {
	out := row.Clone()
	for _, l := range r.schema.Lookups {
		out[l.Name] = r.store.lookup(l, row[l.Via])
	}
	return out
}

func (r *EntityRepository) Create(_ context.Context, rec entity.Record) (entity.Record, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.violates(rec, 0) {
		return nil, entity.DuplicateKey("create "+r.schema.Table, nil)
	}
	t := r.table()
	t.next++
	row := r.stored(rec)
	row["id"] = t.next
	t.rows[t.next] = row
	return row.Clone(), nil
}

func (r *EntityRepository) Get(_ context.Context, id int64) (entity.Record, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := r.table().rows[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return r.read(row), nil
}

func (r *EntityRepository) List(_ context.Context, filter entity.Filter) ([]entity.Record, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return r.match(filter), nil
}

func (r *EntityRepository) match(filter entity.Filter) []entity.Record {
	out := []entity.Record{}
	for _, row := range r.table().rows {
		ok := true
		for k, v := range filter {
			if !reflect.DeepEqual(row[k], v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r.read(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *EntityRepository) FindByNaturalKey(_ context.Context, key entity.Filter) (entity.Record, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := r.match(key)
	if len(rows) == 0 {
		return nil, entity.ErrNotFound
	}
	return rows[0], nil
}

func (r *EntityRepository) Update(_ context.Context, rec entity.Record) (entity.Record, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t := r.table()
	if _, ok := t.rows[rec.ID()]; !ok {
		return nil, entity.ErrNotFound
	}
	if r.violates(rec, rec.ID()) {
		return nil, entity.DuplicateKey("update "+r.schema.Table, nil)
	}
	t.rows[rec.ID()] = r.stored(rec)
	return rec, nil
}

func (r *EntityRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t := r.table()
	if _, ok := t.rows[id]; !ok {
		return entity.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

var _ repository.EntityRepository = (*EntityRepository)(nil)
