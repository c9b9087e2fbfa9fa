package http

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// ErrUnauthorized is returned when a run request carries a wrong secret.
var ErrUnauthorized = errors.New("unauthorized trigger request")

// TriggerGate validates the shared secret carried by inbound batch-run
// requests. It is the only defense against unauthorized invocation: the
// batch acts system-wide across all users, with no per-user identity.
//
// The secret is injected once at construction; nothing reads environment
// state mid-request.
type TriggerGate struct {
	secret [sha256.Size]byte
}

func NewTriggerGate(secret string) *TriggerGate {
	return &TriggerGate{secret: sha256.Sum256([]byte(secret))}
}

// Authorize checks the candidate secret in constant time. Hashing both
// sides first keeps the comparison length-independent.
func (g *TriggerGate) Authorize(candidate string) error {
	sum := sha256.Sum256([]byte(candidate))
	if subtle.ConstantTimeCompare(g.secret[:], sum[:]) != 1 {
		return ErrUnauthorized
	}
	return nil
}
