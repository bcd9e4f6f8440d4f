package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/railgate/ticketing/internal/model"
)

// UserRepo is the MySQL-backed UserStore. Accounts live in the
// `users` table keyed by uid.
type UserRepo struct {
	DB *sql.DB
	// DefaultBalance seeds the wallet of accounts created on first
	// contact, in minor currency units.
	DefaultBalance int64
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB, defaultBalance int64) *UserRepo {
	return &UserRepo{DB: db, DefaultBalance: defaultBalance}
}

// FindByUID fetches a user by uid.
func (r *UserRepo) FindByUID(ctx context.Context, uid string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT uid, name, wallet, created_at FROM users WHERE uid=? LIMIT 1",
		uid).Scan(&u.UID, &u.Name, &u.Wallet, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// CreateIfAbsent inserts the user on first contact and reads the row
// back. INSERT IGNORE makes concurrent first contacts from the same
// uid converge on a single row instead of racing a read-then-write.
func (r *UserRepo) CreateIfAbsent(ctx context.Context, uid string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO users (uid, name, wallet) VALUES (?,?,?)",
		uid, "Commuter", r.DefaultBalance)
	if err != nil {
		return model.User{}, err
	}
	return r.FindByUID(ctx, uid)
}

// AdjustWallet applies a signed delta as a single atomic increment.
// Debits carry the non-negative guard inside the same statement, so a
// pair of concurrent debits can never overdraw between a check and a
// write. The updated row is read back after the increment.
func (r *UserRepo) AdjustWallet(ctx context.Context, uid string, delta int64) (model.User, error) {
	if delta == 0 {
		// A zero delta changes no rows, which RowsAffected cannot tell
		// apart from a refused debit.
		return r.FindByUID(ctx, uid)
	}
	var (
		res sql.Result
		err error
	)
	if delta < 0 {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET wallet = wallet + ? WHERE uid = ? AND wallet + ? >= 0",
			delta, uid, delta)
	} else {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET wallet = wallet + ? WHERE uid = ?",
			delta, uid)
	}
	if err != nil {
		return model.User{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, err
	}
	if n == 0 {
		// Either the uid is unknown or the guard refused a debit;
		// a follow-up read tells the two apart.
		if _, ferr := r.FindByUID(ctx, uid); ferr != nil {
			return model.User{}, ferr
		}
		return model.User{}, ErrInsufficientFunds
	}
	return r.FindByUID(ctx, uid)
}

// isDuplicateKey reports whether err is a MySQL duplicate-key error
// (error 1062), matched the same way across repositories.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
