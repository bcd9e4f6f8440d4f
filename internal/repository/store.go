package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/railgate/ticketing/internal/model"
)

// ClaimReason classifies the outcome of a claim attempt. Granted is
// the only value paired with Granted=true; the remaining reasons are
// the denial strings surfaced to gate hardware unchanged.
type ClaimReason string

const (
	ReasonGranted     ClaimReason = "granted"
	ReasonInvalidTID  ClaimReason = "invalid tid"
	ReasonExpired     ClaimReason = "expired"
	ReasonAlreadyUsed ClaimReason = "already used"
)

// ClaimResult is the outcome of ClaimForUse. When two gates race for
// the same TID exactly one result carries Granted=true; the other
// reports ReasonAlreadyUsed.
type ClaimResult struct {
	Granted bool
	Reason  ClaimReason
}

// UserStore is the persistence contract for commuter accounts. Both
// the MySQL implementation and the in-memory implementation used by
// tests satisfy it. All balance changes go through AdjustWallet as a
// single atomic increment so concurrent top-ups and debits for the
// same UID serialize at the store and no update is lost.
type UserStore interface {
	// FindByUID returns the user record or ErrUserNotFound.
	FindByUID(ctx context.Context, uid string) (model.User, error)
	// CreateIfAbsent inserts a user with default balance on first
	// contact and returns the stored record. It is idempotent and safe
	// under concurrent first contact from the same UID.
	CreateIfAbsent(ctx context.Context, uid string) (model.User, error)
	// AdjustWallet applies a signed delta to the wallet atomically and
	// returns the updated record. Negative deltas that would overdraw
	// fail with ErrInsufficientFunds; unknown UIDs fail with
	// ErrUserNotFound.
	AdjustWallet(ctx context.Context, uid string, delta int64) (model.User, error)
}

// TicketStore is the persistence contract for tickets. ClaimForUse is
// the single point where check-then-act is fused into one atomic
// operation; every validation request funnels through it.
type TicketStore interface {
	// Insert persists a freshly issued ticket. A TID collision fails
	// with ErrDuplicateTicket instead of overwriting.
	Insert(ctx context.Context, t model.Ticket) error
	// FindByTID returns the ticket or ErrTicketNotFound.
	FindByTID(ctx context.Context, tid string) (model.Ticket, error)
	// ClaimForUse transitions the ticket from unused to used, stamping
	// usedAt and gateID, conditioned on the ticket still being unused
	// and unexpired at commit time. At most one claim per TID ever
	// succeeds.
	ClaimForUse(ctx context.Context, tid, gateID string, now time.Time) (ClaimResult, error)
	// ListByUser returns the user's tickets, most recent first.
	ListByUser(ctx context.Context, uid string) ([]model.Ticket, error)
}

// NewTicketID generates a collision-resistant ticket identifier. The
// millisecond prefix keeps IDs roughly sortable by issuance time (and
// matches the identifiers gates already log), the UUID suffix carries
// the randomness that makes collisions practically impossible. The
// store's unique key on tid is the loud backstop if that ever fails.
func NewTicketID(now time.Time) string {
	return fmt.Sprintf("T-%d-%s", now.UnixMilli(), uuid.NewString())
}
