package identity

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) contactTaken(id, phone, ctr string) bool {
	for _, u := range r.users {
		if u.ID == id {
			continue
		}
		if (phone != "" && u.Phone == phone) || (ctr != "" && u.CTRCode == ctr) {
			return true
		}
	}
	return false
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists || r.contactTaken(user.ID, user.Phone, user.CTRCode) {
		return ErrContactTaken
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) find(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	return r.find(func(u User) bool { return phone != "" && u.Phone == phone })
}

func (r *memoryRepository) FindByCTR(_ context.Context, code string) (User, error) {
	return r.find(func(u User) bool { return code != "" && u.CTRCode == code })
}

func (r *memoryRepository) filter(keep func(User) bool) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memoryRepository) List(_ context.Context) ([]User, error) {
	return r.filter(func(User) bool { return true }), nil
}

func (r *memoryRepository) ListBlocked(_ context.Context) ([]User, error) {
	return r.filter(func(u User) bool { return u.Blocked }), nil
}

func (r *memoryRepository) mutate(id string, fn func(*User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if err := fn(&user); err != nil {
		return err
	}
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpdateContact(_ context.Context, id, phone, ctrCode string) error {
	return r.mutate(id, func(u *User) error {
		if r.contactTaken(id, phone, ctrCode) {
			return ErrContactTaken
		}
		u.Phone, u.CTRCode = phone, ctrCode
		return nil
	})
}

func (r *memoryRepository) UpdateProfile(_ context.Context, id string, profile Profile) error {
	return r.mutate(id, func(u *User) error { u.Name = profile.Name; return nil })
}

func (r *memoryRepository) UpdateRole(_ context.Context, id, role string) error {
	return r.mutate(id, func(u *User) error { u.Role = role; return nil })
}

func (r *memoryRepository) UpdateBlocked(_ context.Context, id string, blocked bool) error {
	return r.mutate(id, func(u *User) error { u.Blocked = blocked; return nil })
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.mutate(id, func(u *User) error { u.TokenVersion = version; return nil })
}

func (r *memoryRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(u *User) error { u.LastLogin = at.UTC(); return nil })
}
