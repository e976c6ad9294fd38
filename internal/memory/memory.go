// Package memory holds per-session conversation history.
//
// A session is a bounded FIFO window of question/answer turns with a TTL.
// Two backends exist: an in-process map for single-node deployments and a
// Redis list for deployments where sessions must survive restarts. Both
// enforce the same window and expiry semantics.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrSession indicates the memory backend failed to read or write a session.
var ErrSession = errors.New("session storage failed")

// Turn is one question/answer exchange.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// Store persists conversation history per session.
//
// History returns the retained turns oldest first. An unknown or expired
// session yields an empty history, not an error.
type Store interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	History(ctx context.Context, sessionID string) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

// Options bound a session window.
type Options struct {
	// TTL is how long a session lives after its last write.
	TTL time.Duration
	// MaxTurns caps retained turns per session. Older turns are evicted
	// first. Non-positive means unbounded.
	MaxTurns int
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	return o
}
