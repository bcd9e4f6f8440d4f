package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/railgate/ticketing/internal/model"
)

// TicketRepo is the MySQL-backed TicketStore. Tickets live in the
// `tickets` table keyed by tid with a unique index on the column. All
// timestamp fields are stored in UTC.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = "tid, uid, source, destination, class_type, count, amount, booking_method, token_payload, created_at, expires_at, used, used_at, gate_id"

// Insert persists a freshly issued ticket with used=false. A
// duplicate tid is refused by the unique key and surfaces as
// ErrDuplicateTicket.
func (r *TicketRepo) Insert(ctx context.Context, t model.Ticket) error {
	const q = `INSERT INTO tickets
	           (tid, uid, source, destination, class_type, count, amount, booking_method, token_payload, created_at, expires_at, used)
	           VALUES (?,?,?,?,?,?,?,?,?,?,?,0)`
	_, err := r.db.ExecContext(ctx, q,
		t.TID, t.UID, t.Source, t.Destination, t.ClassType, t.Count,
		t.Amount, t.BookingMethod, t.TokenPayload,
		t.CreatedAt.UTC(), t.ExpiresAt.UTC())
	if isDuplicateKey(err) {
		return ErrDuplicateTicket
	}
	return err
}

// FindByTID fetches a ticket by tid.
func (r *TicketRepo) FindByTID(ctx context.Context, tid string) (model.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE tid=? LIMIT 1", tid)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrTicketNotFound
	}
	return t, err
}

// ClaimForUse is the atomic unused→used transition. The conditional
// UPDATE fuses the expiry and prior-use checks with the write: the row
// only changes when it is still unused and unexpired at commit time,
// so of any number of concurrent claims for one tid exactly one
// observes RowsAffected=1. When the update matches nothing, a
// follow-up read classifies the denial.
func (r *TicketRepo) ClaimForUse(ctx context.Context, tid, gateID string, now time.Time) (ClaimResult, error) {
	const q = `UPDATE tickets
	           SET used = 1, used_at = ?, gate_id = ?
	           WHERE tid = ? AND used = 0 AND expires_at > ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC(), gateID, tid, now.UTC())
	if err != nil {
		return ClaimResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ClaimResult{}, err
	}
	if n == 1 {
		return ClaimResult{Granted: true, Reason: ReasonGranted}, nil
	}
	t, err := r.FindByTID(ctx, tid)
	if errors.Is(err, ErrTicketNotFound) {
		return ClaimResult{Reason: ReasonInvalidTID}, nil
	}
	if err != nil {
		return ClaimResult{}, err
	}
	if t.Used {
		return ClaimResult{Reason: ReasonAlreadyUsed}, nil
	}
	// Unused but the guard refused: the ticket sat past its window.
	// Expiry is a read-time classification; the row stays unused.
	return ClaimResult{Reason: ReasonExpired}, nil
}

// ListByUser returns all tickets for the given uid ordered by
// creation time descending (newest first). When no tickets exist, an
// empty slice is returned.
func (r *TicketRepo) ListByUser(ctx context.Context, uid string) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE uid=? ORDER BY created_at DESC, tid DESC", uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// rowScanner covers *sql.Row and *sql.Rows for scanTicket.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var (
		t      model.Ticket
		usedAt sql.NullTime
		gateID sql.NullString
	)
	err := row.Scan(
		&t.TID, &t.UID, &t.Source, &t.Destination, &t.ClassType, &t.Count,
		&t.Amount, &t.BookingMethod, &t.TokenPayload,
		&t.CreatedAt, &t.ExpiresAt, &t.Used, &usedAt, &gateID,
	)
	if err != nil {
		return model.Ticket{}, err
	}
	if usedAt.Valid {
		ts := usedAt.Time
		t.UsedAt = &ts
	}
	if gateID.Valid {
		g := gateID.String
		t.GateID = &g
	}
	return t, nil
}
