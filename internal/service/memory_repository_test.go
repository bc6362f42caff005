package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artarona/Administrador/internal/model"
	"github.com/artarona/Administrador/internal/repository"
)

// ---------------------------------------------------------------------------
// memoryContactRepo: in-memory ContactRepository that enforces email
// uniqueness at "storage" level like the unique index does.
// ---------------------------------------------------------------------------

type memoryContactRepo struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*model.Contact

	// skipPrecheck makes ExistsByEmail always report false, simulating a
	// concurrent insert that lands between the pre-check and the insert.
	skipPrecheck bool
}

func newMemoryContactRepo() *memoryContactRepo {
	return &memoryContactRepo{byEmail: make(map[string]*model.Contact)}
}

var _ repository.ContactRepository = (*memoryContactRepo)(nil)

func (r *memoryContactRepo) List(ctx context.Context) ([]*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Contact, 0, len(r.byEmail))
	for _, c := range r.byEmail {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memoryContactRepo) Create(ctx context.Context, c *model.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[c.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.byEmail[c.Email] = &cp
	return nil
}

func (r *memoryContactRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if r.skipPrecheck {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memoryContactRepo) Update(ctx context.Context, email string, name *string, phone, message string, now time.Time) (*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if name != nil {
		c.Name = *name
	}
	c.Phone = phone
	c.Message = message
	// Mirrors GREATEST($5, fecha_creacion + 1µs).
	floor := c.CreatedAt.Add(time.Microsecond)
	if now.After(floor) {
		c.UpdatedAt = now
	} else {
		c.UpdatedAt = floor
	}
	cp := *c
	return &cp, nil
}

func (r *memoryContactRepo) Delete(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byEmail, email)
	return nil
}

func (r *memoryContactRepo) Clear(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.byEmail))
	r.byEmail = make(map[string]*model.Contact)
	return n, nil
}

func (r *memoryContactRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byEmail)), nil
}

func (r *memoryContactRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64)
	for _, c := range r.byEmail {
		out[c.Status]++
	}
	return out, nil
}

// tickingClock returns strictly increasing instants, one millisecond apart.
type tickingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{cur: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Millisecond)
	return c.cur
}

func newTestService(repo repository.ContactRepository, now func() time.Time) *contactServiceImpl {
	return &contactServiceImpl{repo: repo, now: now}
}
