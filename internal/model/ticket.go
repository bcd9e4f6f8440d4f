package model

import "time"

// Ticket records a single paid journey as stored in the `tickets`
// table. A ticket is written once at issuance and mutated exactly once
// afterwards, when a gate claims it: the used flag flips from false to
// true and UsedAt/GateID are stamped in the same statement. The flag is
// never reset and tickets are never deleted; expired tickets simply
// stay unused and are classified at read time.
//
// Fields:
//  TID           – globally unique ticket identifier, immutable.
//  UID           – owning user (many tickets per user).
//  Source        – departure station.
//  Destination   – arrival station.
//  ClassType     – travel class chosen at purchase.
//  Count         – number of passengers covered by the ticket.
//  Amount        – fare charged, in minor currency units.
//  BookingMethod – funding source ("wallet" or an external gateway).
//  TokenPayload  – signed payload embedded in the scannable token; it
//                  carries the TID to the gate and is never trusted on
//                  its own, validation re-resolves the TID here.
//  CreatedAt     – issuance timestamp.
//  ExpiresAt     – CreatedAt plus the configured validity window.
//  Used          – whether a gate has claimed this ticket.
//  UsedAt        – when the claim happened (nil while unused).
//  GateID        – the gate that claimed it (nil while unused).
type Ticket struct {
	TID           string     `json:"tid"`              // tickets.tid
	UID           string     `json:"uid"`              // tickets.uid
	Source        string     `json:"source"`           // tickets.source
	Destination   string     `json:"destination"`      // tickets.destination
	ClassType     string     `json:"classType"`        // tickets.class_type
	Count         int        `json:"count"`            // tickets.count
	Amount        int64      `json:"amount"`           // tickets.amount
	BookingMethod string     `json:"bookingMethod"`    // tickets.booking_method
	TokenPayload  string     `json:"tokenPayload"`     // tickets.token_payload
	CreatedAt     time.Time  `json:"createdAt"`        // tickets.created_at
	ExpiresAt     time.Time  `json:"expiresAt"`        // tickets.expires_at
	Used          bool       `json:"used"`             // tickets.used
	UsedAt        *time.Time `json:"usedAt,omitempty"` // tickets.used_at (nullable)
	GateID        *string    `json:"gateId,omitempty"` // tickets.gate_id (nullable)
}

// BookingMethodWallet marks tickets funded from the user's stored
// balance; issuance debits the wallet atomically before writing the
// ticket. Any other booking method is assumed to have been settled by
// an external payment authority before the issuance call.
const BookingMethodWallet = "wallet"
