// Package token implements the codec between a ticket's logical
// fields and the payload embedded in its scannable representation.
// The payload is a compact HS256-signed token so a gate can spot a
// hand-crafted payload early, but it never self-authorizes: the
// validation service always re-resolves the tid against the store and
// the decoded fields are advisory only.
package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Fields are the ticket attributes carried inside the payload. The
// short claim names keep the encoded token small enough for dense QR
// rendering on low-end rider devices.
type Fields struct {
	TID         string `json:"tid"`
	UID         string `json:"uid"`
	Source      string `json:"src"`
	Destination string `json:"dst"`
}

// claims wraps Fields for signing. No registered time claims are set:
// expiry is enforced by the store at claim time, not by the payload.
type claims struct {
	Fields
	jwt.RegisteredClaims
}

// ErrInvalidPayload is returned by Decode for payloads that do not
// parse or do not verify against the signing secret.
var ErrInvalidPayload = errors.New("invalid token payload")

// Codec signs and verifies ticket payloads. It is stateless and safe
// for concurrent use; Encode is deterministic for fixed fields and
// secret.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given shared secret.
func NewCodec(secret string) *Codec { return &Codec{secret: []byte(secret)} }

// Encode maps the fields to their signed compact payload.
func (c *Codec) Encode(f Fields) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{Fields: f})
	return t.SignedString(c.secret)
}

// Decode verifies the payload signature and returns the carried
// fields. Callers must treat the result as a hint for looking up the
// tid, never as proof of validity.
func (c *Codec) Decode(payload string) (Fields, error) {
	var cl claims
	tok, err := jwt.ParseWithClaims(payload, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidPayload
		}
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return Fields{}, ErrInvalidPayload
	}
	return cl.Fields, nil
}
