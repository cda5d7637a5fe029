package repository

import (
	"context"
	"sync"
	"time"

	"secrets/internal/errors"
	"secrets/internal/model"
)

// UserRepository defines the credential store.
//
// Create assigns ID and CreatedAt and fails with errors.ErrDuplicateEmail when
// the email is already present (exact, case-sensitive match). The duplicate
// check and the insert are one atomic step. Lookups fail with
// errors.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[uint]*model.User
	byEmail map[string]uint
	lastID  uint
	now     func() time.Time
}

// NewMemoryUserRepository builds an empty in-memory store. Records live for
// the lifetime of the value and are never updated or deleted.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[uint]*model.User),
		byEmail: make(map[string]uint),
		now:     time.Now,
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return errors.ErrDuplicateEmail
	}

	r.lastID++
	user.ID = r.lastID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}

	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	found := *user
	return &found, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	found := *r.byID[id]
	return &found, nil
}
