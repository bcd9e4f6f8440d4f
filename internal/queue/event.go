// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published when a ticket is successfully issued.
// It carries enough information for downstream consumers to audit or
// reconcile fares without querying the primary database.
type TicketIssuedEvent struct {
	TID           string `json:"tid"`
	UID           string `json:"uid"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	ClassType     string `json:"class_type"`
	Count         int    `json:"count"`
	Amount        int64  `json:"amount"`
	BookingMethod string `json:"booking_method"`
	IssuedAt      string `json:"issued_at"`
	ExpiresAt     string `json:"expires_at"`
}

// GateDecisionEvent is published for every authenticated validation
// attempt, grants and denials alike. Denials are audit-relevant: a
// burst of "already used" for one tid is the signature of a cloned
// token.
type GateDecisionEvent struct {
	TID       string `json:"tid"`
	GateID    string `json:"gate_id"`
	Granted   bool   `json:"granted"`
	Reason    string `json:"reason"`
	DecidedAt string `json:"decided_at"`
}
