package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/finflow-backend/internal/domain"
)

// Directory resolves notification targets and contacts from the Store's users
type Directory struct {
	s *Store
}

// ResolveAssigned returns the tracker's assigned user
func (d *Directory) ResolveAssigned(ctx context.Context, trackerID uuid.UUID) (uuid.UUID, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	t, ok := d.s.data.trackers[trackerID]
	if !ok {
		return uuid.Nil, domain.NotFoundError("financing tracker", trackerID)
	}
	return t.AssignedTo, nil
}

// ResolveDepartmentManagers returns the active managers of dept
func (d *Directory) ResolveDepartmentManagers(ctx context.Context, dept domain.Department) ([]uuid.UUID, error) {
	return d.activeUsers(func(u domain.User) bool {
		return u.Department == dept && u.Role == domain.RoleManager
	}), nil
}

// ResolveDepartmentMembers returns every active user of dept
func (d *Directory) ResolveDepartmentMembers(ctx context.Context, dept domain.Department) ([]uuid.UUID, error) {
	return d.activeUsers(func(u domain.User) bool {
		return u.Department == dept
	}), nil
}

// ResolveMarketer returns the reservation's marketer
func (d *Directory) ResolveMarketer(ctx context.Context, reservationID uuid.UUID) (uuid.UUID, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	res, ok := d.s.data.reservations[reservationID]
	if !ok {
		return uuid.Nil, domain.NotFoundError("reservation", reservationID)
	}
	return res.MarketerID, nil
}

// GetContact returns a user's delivery addresses
func (d *Directory) GetContact(ctx context.Context, userID uuid.UUID) (*domain.Contact, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	u, ok := d.s.users[userID]
	if !ok {
		return nil, domain.NotFoundError("user", userID)
	}
	return u.Contact(), nil
}

func (d *Directory) activeUsers(match func(u domain.User) bool) []uuid.UUID {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	var ids []uuid.UUID
	for _, id := range d.s.userOrder {
		u := d.s.users[id]
		if u.IsActive && match(u) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Inbox records notifications in memory, newest last
type Inbox struct {
	mu    sync.Mutex
	items []domain.Notification
}

// NewInbox creates an empty Inbox
func NewInbox() *Inbox {
	return &Inbox{}
}

// Notify stores n
func (i *Inbox) Notify(ctx context.Context, n domain.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
	return nil
}

// All returns every recorded notification
func (i *Inbox) All() []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]domain.Notification, len(i.items))
	copy(out, i.items)
	return out
}

// For returns the notifications addressed to recipient
func (i *Inbox) For(recipient uuid.UUID) []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []domain.Notification
	for _, n := range i.items {
		if n.RecipientID == recipient {
			out = append(out, n)
		}
	}
	return out
}
