package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kynahq/kyna/internal/log"
)

const redisKeyPrefix = "kyna:session:"

// Redis stores session history as a Redis list, one JSON-encoded turn per
// element. RPUSH keeps turns in arrival order, LTRIM enforces the window and
// EXPIRE refreshes the TTL on every write, all in one pipeline round trip.
type Redis struct {
	client *redis.Client
	opts   Options
	logger log.Logger
}

// NewRedis creates a Redis-backed session store.
func NewRedis(client *redis.Client, opts Options, logger log.Logger) *Redis {
	return &Redis{client: client, opts: opts.withDefaults(), logger: logger}
}

func (r *Redis) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Append records a turn and refreshes the session TTL.
func (r *Redis) Append(ctx context.Context, sessionID string, turn Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("%w: encoding turn: %w", ErrSession, err)
	}

	key := r.key(sessionID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	if max := r.opts.MaxTurns; max > 0 {
		pipe.LTrim(ctx, key, int64(-max), -1)
	}
	pipe.Expire(ctx, key, r.opts.TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: appending turn: %w", ErrSession, err)
	}
	return nil
}

// History returns retained turns oldest first. A missing key reads as empty.
func (r *Redis) History(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: reading history: %w", ErrSession, err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			// A corrupt element should not poison the whole session.
			r.logger.Warn("skipping malformed session turn", "session_id", sessionID, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	if len(turns) == 0 {
		return nil, nil
	}
	return turns, nil
}

// Clear discards a session. Clearing an unknown session is a no-op.
func (r *Redis) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: clearing session: %w", ErrSession, err)
	}
	return nil
}
