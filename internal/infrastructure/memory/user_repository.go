package memory

import (
	"context"
	"sort"
	"time"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/internal/domain/repository"
)

type UserRepository struct {
	store *Store
}

func copyUser(u *entity.User) *entity.User {
	c := *u
	return &c
}

func (r *UserRepository) uidTaken(uid string, except int64) bool {
	for id, u := range r.store.users {
		if id != except && u.UID == uid {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.uidTaken(u.UID, 0) {
		return entity.DuplicateKey("create user", nil)
	}
	s.nextUserID++
	now := time.Now().UTC()
	u.ID = s.nextUserID
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByUID(_ context.Context, uid string) (*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.UID == uid {
			return copyUser(u), nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r *UserRepository) List(_ context.Context) ([]*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return entity.ErrNotFound
	}
	if r.uidTaken(u.UID, u.ID) {
		return entity.DuplicateKey("update user", nil)
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return entity.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
