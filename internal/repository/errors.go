// Package repository defines error types that are reused across the
// user and ticket stores. These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios. For example, ErrInsufficientFunds is a business
// rejection the rider can correct by topping up, while
// ErrDuplicateTicket signals an internal invariant violation in the
// ID generator and must never be silently absorbed.
package repository

import "errors"

// ErrUserNotFound is returned when a wallet adjustment or lookup
// references a UID with no user record. Handlers should translate
// this into an HTTP 404 response.
var ErrUserNotFound = errors.New("user not found")

// ErrTicketNotFound is returned when a ticket lookup or claim
// references an unknown TID. Handlers should translate this into
// the "invalid tid" denial.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrInsufficientFunds is returned when a debit would take the
// wallet below zero. The guard lives inside the atomic update so
// concurrent debits cannot overdraw between a check and a write.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrDuplicateTicket is returned when a ticket insert collides on
// TID. A correctly functioning generator never produces this; when
// it surfaces, the insert has been refused rather than overwriting
// the existing ticket.
var ErrDuplicateTicket = errors.New("duplicate ticket id")
