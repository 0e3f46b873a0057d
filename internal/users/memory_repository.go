package users

import (
	"context"
	"sync"
	"time"

	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
)

// MemoryRepository keeps users in process. Used for STORE_DRIVER=memory
// and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	bySub map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]*models.User{}, bySub: map[string]string{}}
}

func clone(u *models.User) *models.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}

func (r *MemoryRepository) FindBySub(ctx context.Context, sub string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySub[sub]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySub[u.Sub]; ok {
		return ErrDuplicateSubject
	}
	r.byID[u.ID] = clone(u)
	r.bySub[u.Sub] = u.ID
	return nil
}

func (r *MemoryRepository) UpdateProfile(ctx context.Context, id, name, picture string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Name = name
	u.PictureURL = picture
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *MemoryRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.bySub, u.Sub)
	delete(r.byID, id)
	return nil
}

// Count returns the number of stored users.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
