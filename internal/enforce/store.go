// Package enforce applies confirmed moderation outcomes to authors and
// messages, backed by Redis. Hard violations accumulate strikes per author
// and suppress posting for an escalating duration; soft outcomes record a
// downrank marker per message that the ranking layer consults.
//
//	Key:   suppress:<author_id>   Value: <reason>   TTL: suppression duration
//	Key:   strikes:<author_id>    Value: <count>    TTL: 24h from first strike
//	Key:   downrank:<message_id>  Value: <reason>   TTL: downrank window
package enforce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SuppressPrefix is the Redis key prefix for suppression records.
	SuppressPrefix = "suppress:"

	// StrikesPrefix is the Redis key prefix for per-author strike counters.
	StrikesPrefix = "strikes:"

	// DownrankPrefix is the Redis key prefix for downranked messages.
	DownrankPrefix = "downrank:"

	// Escalating suppression durations by strike count.
	Suppress15Min  = 15 * time.Minute // 1st strike
	Suppress1Hour  = 1 * time.Hour    // 2nd strike
	Suppress24Hour = 24 * time.Hour   // 3rd+ strike

	// StrikesTTL is how long the strike counter lives in Redis. After 24h
	// without new strikes the counter resets to zero.
	StrikesTTL = 24 * time.Hour

	// DownrankTTL is how long a downrank marker stays in effect.
	DownrankTTL = 72 * time.Hour
)

// Store applies enforcement records in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates an enforcement store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// suppressionDuration returns the suppression duration for a strike count.
func suppressionDuration(strikes int) time.Duration {
	switch {
	case strikes <= 1:
		return Suppress15Min
	case strikes == 2:
		return Suppress1Hour
	default:
		return Suppress24Hour
	}
}

// Escalate records a strike against an author and applies a suppression
// whose duration escalates with the strike count:
//
//	1st strike  -> 15 minutes
//	2nd strike  -> 1 hour
//	3rd+ strike -> 24 hours
//
// The strike counter has a 24h TTL set on first increment, so counters
// naturally expire when an author stops offending. Returns the suppression
// duration that was applied.
func (s *Store) Escalate(ctx context.Context, authorID, reason string) (time.Duration, error) {
	key := StrikesPrefix + authorID

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("enforce: strike incr: %w", err)
	}

	// Set TTL only on first increment so the window doesn't slide.
	if count == 1 {
		if err := s.client.Expire(ctx, key, StrikesTTL).Err(); err != nil {
			return 0, fmt.Errorf("enforce: strike expire: %w", err)
		}
	}

	duration := suppressionDuration(int(count))
	if err := s.client.Set(ctx, SuppressPrefix+authorID, reason, duration).Err(); err != nil {
		return 0, fmt.Errorf("enforce: suppress: %w", err)
	}
	return duration, nil
}

// IsSuppressed checks whether an author is currently suppressed.
// Returns (suppressed, remainingSeconds, reason, error). Redis errors are
// returned so callers can decide how to handle them.
func (s *Store) IsSuppressed(ctx context.Context, authorID string) (bool, int, string, error) {
	key := SuppressPrefix + authorID

	reason, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, 0, "", nil
	}
	if err != nil {
		return false, 0, "", err
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		// The suppression exists but the TTL read failed. Report suppressed
		// with 0 remaining rather than swallowing the record.
		return true, 0, reason, nil
	}

	remaining := 0
	if ttl > 0 {
		remaining = int(ttl.Seconds())
	}
	return true, remaining, reason, nil
}

// Lift removes an author's suppression immediately. The strike counter is
// left in place.
func (s *Store) Lift(ctx context.Context, authorID string) error {
	return s.client.Del(ctx, SuppressPrefix+authorID).Err()
}

// Strikes returns the author's current strike count. Returns 0 if no
// strikes are recorded or the counter expired.
func (s *Store) Strikes(ctx context.Context, authorID string) (int, error) {
	val, err := s.client.Get(ctx, StrikesPrefix+authorID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Downrank records a downrank marker for a message.
func (s *Store) Downrank(ctx context.Context, messageID, reason string) error {
	if err := s.client.Set(ctx, DownrankPrefix+messageID, reason, DownrankTTL).Err(); err != nil {
		return fmt.Errorf("enforce: downrank: %w", err)
	}
	return nil
}

// IsDownranked checks whether a message currently carries a downrank marker.
func (s *Store) IsDownranked(ctx context.Context, messageID string) (bool, error) {
	_, err := s.client.Get(ctx, DownrankPrefix+messageID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
