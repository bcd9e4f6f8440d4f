package model

import "time"

// User represents a commuter account as stored in the `users` table.
// Accounts are created lazily on first contact with a client-generated
// UID; there is no registration flow. The wallet balance is kept in
// minor currency units and is only ever changed through the atomic
// adjustment in the repository layer, never by writing a computed
// balance back.
//
// Fields:
//  UID       – opaque stable identifier supplied by the client device.
//  Name      – display name; defaults to "Commuter" on first contact.
//  Wallet    – balance in minor currency units; never negative after a
//              completed operation.
//  CreatedAt – timestamp of first contact.
type User struct {
	UID       string    `json:"uid"`       // users.uid
	Name      string    `json:"name"`      // users.name
	Wallet    int64     `json:"wallet"`    // users.wallet
	CreatedAt time.Time `json:"createdAt"` // users.created_at
}
