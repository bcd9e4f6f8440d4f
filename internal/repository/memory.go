package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/railgate/ticketing/internal/model"
)

// MemoryStore is an in-process implementation of UserStore and
// TicketStore. It backs the test suite and serves as a development
// fallback when no database is configured. It honors the same
// contracts as the MySQL repositories: every wallet change is a
// serialized increment and every claim is a fused check-and-set under
// one lock, so the concurrency guarantees hold here too.
type MemoryStore struct {
	mu             sync.Mutex
	users          map[string]model.User
	tickets        map[string]model.Ticket
	order          []string // tids in insertion order
	DefaultBalance int64
}

// NewMemoryStore returns an empty MemoryStore seeding new accounts
// with the given balance.
func NewMemoryStore(defaultBalance int64) *MemoryStore {
	return &MemoryStore{
		users:          make(map[string]model.User),
		tickets:        make(map[string]model.Ticket),
		DefaultBalance: defaultBalance,
	}
}

// FindByUID returns the user record or ErrUserNotFound.
func (s *MemoryStore) FindByUID(ctx context.Context, uid string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// CreateIfAbsent inserts a default account on first contact. The
// whole operation runs under the store lock, so concurrent first
// contacts from the same uid converge on one record.
func (s *MemoryStore) CreateIfAbsent(ctx context.Context, uid string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[uid]; ok {
		return u, nil
	}
	u := model.User{
		UID:       uid,
		Name:      "Commuter",
		Wallet:    s.DefaultBalance,
		CreatedAt: time.Now().UTC(),
	}
	s.users[uid] = u
	return u, nil
}

// AdjustWallet applies a signed delta under the store lock. The
// overdraw guard sits inside the same critical section as the write,
// mirroring the guarded UPDATE in the MySQL repository.
func (s *MemoryStore) AdjustWallet(ctx context.Context, uid string, delta int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	if u.Wallet+delta < 0 {
		return model.User{}, ErrInsufficientFunds
	}
	u.Wallet += delta
	s.users[uid] = u
	return u, nil
}

// Insert persists a ticket, refusing tid collisions.
func (s *MemoryStore) Insert(ctx context.Context, t model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.TID]; ok {
		return ErrDuplicateTicket
	}
	s.tickets[t.TID] = t
	s.order = append(s.order, t.TID)
	return nil
}

// FindByTID returns the ticket or ErrTicketNotFound.
func (s *MemoryStore) FindByTID(ctx context.Context, tid string) (model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[tid]
	if !ok {
		return model.Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

// ClaimForUse performs the unused→used transition with the expiry and
// prior-use checks inside the same critical section as the write.
// Exactly one of any number of concurrent claims for a tid succeeds.
func (s *MemoryStore) ClaimForUse(ctx context.Context, tid, gateID string, now time.Time) (ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[tid]
	if !ok {
		return ClaimResult{Reason: ReasonInvalidTID}, nil
	}
	if t.Used {
		return ClaimResult{Reason: ReasonAlreadyUsed}, nil
	}
	if !t.ExpiresAt.After(now) {
		// Left unused; expiry is a classification, not a write.
		return ClaimResult{Reason: ReasonExpired}, nil
	}
	usedAt := now.UTC()
	gid := gateID
	t.Used = true
	t.UsedAt = &usedAt
	t.GateID = &gid
	s.tickets[tid] = t
	return ClaimResult{Granted: true, Reason: ReasonGranted}, nil
}

// ListByUser returns the user's tickets newest first.
func (s *MemoryStore) ListByUser(ctx context.Context, uid string) ([]model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets := make([]model.Ticket, 0)
	for _, tid := range s.order {
		t := s.tickets[tid]
		if t.UID == uid {
			tickets = append(tickets, t)
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].TID > tickets[j].TID
	})
	return tickets, nil
}
