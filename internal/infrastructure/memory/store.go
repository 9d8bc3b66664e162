// Package memory is an in-process backing store with the same contract as the
// Postgres repositories. It serves STORE_DRIVER=memory and the service tests.
// Every operation is applied under one lock, so a failed write never leaves a partial row.
package memory

import (
	"sync"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

type Store struct {
	mu sync.RWMutex

	users      map[int64]*entity.User
	nextUserID int64

	tables map[string]*table
}

type table struct {
	rows map[int64]entity.Record
	next int64
}

func NewStore() *Store {
	return &Store{
		users:  map[int64]*entity.User{},
		tables: map[string]*table{},
	}
}

// Users returns the user repository backed by this store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// Entities returns the repository for one schema backed by this store.
func (s *Store) Entities(schema *entity.Schema) *EntityRepository {
	s.mu.Lock()
	if _, ok := s.tables[schema.Table]; !ok {
		s.tables[schema.Table] = &table{rows: map[int64]entity.Record{}}
	}
	s.mu.Unlock()
	return &EntityRepository{store: s, schema: schema}
}

// Count returns the number of rows in a table; callers use it to assert rollbacks.
func (s *Store) Count(tableName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tableName == "users" {
		return len(s.users)
	}
	t, ok := s.tables[tableName]
	if !ok {
		return 0
	}
	return len(t.rows)
}

// lookup resolves a display field through the users table. Caller holds the lock.
func (s *Store) lookup(l entity.Lookup, fk any) any {
	if l.Table != "users" {
		return nil
	}
	id, ok := fk.(int64)
	if !ok {
		return nil
	}
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	switch l.Column {
	case "name":
		return u.Name
	case "uid":
		return u.UID
	case "email":
		return u.Email
	}
	return nil
}
