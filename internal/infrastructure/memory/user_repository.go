package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

type record struct {
	user entity.User
	seq  uint64
}

// UserRepository is an in-process store with the same guarantees as the
// postgres adapter: store-assigned ids and timestamps, and a unique email.
// It backs STORE_DRIVER=memory and the service/handler tests.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*record
	byEmail map[string]string
	seq     uint64
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    map[string]*record{},
		byEmail: map[string]string{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests that need distinct timestamps.
func (r *UserRepository) WithClock(now func() time.Time) *UserRepository {
	r.now = now
	return r
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return apperror.Conflict("User with this email already exists")
	}
	now := r.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.seq++
	r.byID[u.ID] = &record{user: *u, seq: r.seq}
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) sorted() []*record {
	recs := make([]*record, 0, len(r.byID))
	for _, rec := range r.byID {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.user.CreatedAt.Equal(b.user.CreatedAt) {
			return a.user.CreatedAt.After(b.user.CreatedAt)
		}
		return a.seq > b.seq
	})
	return recs
}

func (r *UserRepository) List(_ context.Context, offset, limit int) ([]entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.sorted()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) || limit <= 0 {
		return []entity.User{}, nil
	}
	end := offset + limit
	if end > len(recs) {
		end = len(recs)
	}
	out := make([]entity.User, 0, end-offset)
	for _, rec := range recs[offset:end] {
		out = append(out, rec.user)
	}
	return out, nil
}

func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, apperror.NotFound("User not found")
	}
	u := rec.user
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("User not found")
	}
	u := r.byID[id].user
	return &u, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[u.ID]
	if !ok {
		return apperror.NotFound("User not found")
	}
	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return apperror.Conflict("Email already exists")
	}

	updatedAt := r.now()
	if updatedAt.Before(rec.user.CreatedAt) {
		updatedAt = rec.user.CreatedAt
	}
	delete(r.byEmail, rec.user.Email)
	rec.user.Name = u.Name
	rec.user.Email = u.Email
	rec.user.Address = u.Address
	rec.user.UpdatedAt = updatedAt
	r.byEmail[u.Email] = u.ID

	u.CreatedAt = rec.user.CreatedAt
	u.UpdatedAt = updatedAt
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return apperror.NotFound("User not found")
	}
	delete(r.byEmail, rec.user.Email)
	delete(r.byID, id)
	return nil
}

func (r *UserRepository) Ping(context.Context) error { return nil }

var _ repository.UserRepository = (*UserRepository)(nil)
