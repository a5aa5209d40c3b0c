package enforce

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore creates a Store connected to a local Redis instance and
// flushes all enforcement test keys before returning.  Tests that call this
// helper require a running Redis on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	for _, prefix := range []string{SuppressPrefix + "test_*", StrikesPrefix + "test_*", DownrankPrefix + "test_*"} {
		iter := client.Scan(ctx, 0, prefix, 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	t.Cleanup(func() {
		for _, prefix := range []string{SuppressPrefix + "test_*", StrikesPrefix + "test_*", DownrankPrefix + "test_*"} {
			iter := client.Scan(ctx, 0, prefix, 100).Iterator()
			for iter.Next(ctx) {
				client.Del(ctx, iter.Val())
			}
		}
		client.Close()
	})
	return NewStore(client)
}

func TestSuppressionDuration(t *testing.T) {
	cases := []struct {
		strikes  int
		expected time.Duration
	}{
		{0, Suppress15Min},
		{1, Suppress15Min},
		{2, Suppress1Hour},
		{3, Suppress24Hour},
		{4, Suppress24Hour},
		{10, Suppress24Hour},
	}
	for _, tc := range cases {
		got := suppressionDuration(tc.strikes)
		if got != tc.expected {
			t.Errorf("suppressionDuration(%d) = %v, want %v", tc.strikes, got, tc.expected)
		}
	}
}

func TestIsSuppressed_NotSuppressed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	suppressed, remaining, reason, err := store.IsSuppressed(ctx, "test_clean_author")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suppressed {
		t.Errorf("expected not suppressed, got suppressed (remaining=%d reason=%q)", remaining, reason)
	}
}

func TestEscalate_FirstStrike_15Min(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	author := "test_first_strike"

	duration, err := store.Escalate(ctx, author, "direct threat/incitement")
	if err != nil {
		t.Fatalf("Escalate() error: %v", err)
	}
	if duration != Suppress15Min {
		t.Errorf("1st strike: expected %v, got %v", Suppress15Min, duration)
	}

	suppressed, remaining, reason, err := store.IsSuppressed(ctx, author)
	if err != nil {
		t.Fatalf("IsSuppressed() error: %v", err)
	}
	if !suppressed {
		t.Fatal("expected suppressed=true after 1st strike")
	}
	if reason != "direct threat/incitement" {
		t.Errorf("expected reason=%q, got %q", "direct threat/incitement", reason)
	}
	// 15 min = 900 seconds; allow some slack for test execution time.
	if remaining < 890 || remaining > 900 {
		t.Errorf("expected remaining ~900s, got %d", remaining)
	}

	count, err := store.Strikes(ctx, author)
	if err != nil {
		t.Fatalf("Strikes() error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected strikes=1, got %d", count)
	}
}

func TestEscalate_SecondStrike_1Hour(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	author := "test_second_strike"

	if _, err := store.Escalate(ctx, author, "recruitment"); err != nil {
		t.Fatalf("1st Escalate() error: %v", err)
	}
	store.Lift(ctx, author)

	duration, err := store.Escalate(ctx, author, "recruitment")
	if err != nil {
		t.Fatalf("2nd Escalate() error: %v", err)
	}
	if duration != Suppress1Hour {
		t.Errorf("2nd strike: expected %v, got %v", Suppress1Hour, duration)
	}

	count, _ := store.Strikes(ctx, author)
	if count != 2 {
		t.Errorf("expected strikes=2, got %d", count)
	}
}

func TestEscalate_ThirdStrike_Capped24Hour(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	author := "test_third_strike"

	store.Escalate(ctx, author, "x")
	store.Escalate(ctx, author, "x")
	store.Lift(ctx, author)

	duration, err := store.Escalate(ctx, author, "x")
	if err != nil {
		t.Fatalf("3rd Escalate() error: %v", err)
	}
	if duration != Suppress24Hour {
		t.Errorf("3rd strike: expected %v, got %v", Suppress24Hour, duration)
	}

	// 4th strike stays capped at 24h.
	store.Lift(ctx, author)
	duration, err = store.Escalate(ctx, author, "x")
	if err != nil {
		t.Fatalf("4th Escalate() error: %v", err)
	}
	if duration != Suppress24Hour {
		t.Errorf("4th strike: expected %v (capped), got %v", Suppress24Hour, duration)
	}
}

func TestLift(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	author := "test_lift"

	if _, err := store.Escalate(ctx, author, "test"); err != nil {
		t.Fatalf("Escalate() error: %v", err)
	}
	if err := store.Lift(ctx, author); err != nil {
		t.Fatalf("Lift() error: %v", err)
	}

	suppressed, _, _, err := store.IsSuppressed(ctx, author)
	if err != nil {
		t.Fatalf("IsSuppressed() error: %v", err)
	}
	if suppressed {
		t.Error("expected not suppressed after Lift()")
	}

	// Strikes survive a lift.
	count, _ := store.Strikes(ctx, author)
	if count != 1 {
		t.Errorf("expected strikes=1 after Lift(), got %d", count)
	}
}

func TestStrikeCounterTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	author := "test_strike_ttl"

	store.Escalate(ctx, author, "test")

	ttl, err := store.client.TTL(ctx, StrikesPrefix+author).Result()
	if err != nil {
		t.Fatalf("TTL() error: %v", err)
	}
	// TTL should be positive and close to 24h (86400s). Allow 10s slack.
	if ttl < 86390*time.Second || ttl > 86400*time.Second {
		t.Errorf("expected TTL ~24h, got %v", ttl)
	}
}

func TestDownrank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	msg := "test_downrank_msg"

	marked, err := store.IsDownranked(ctx, msg)
	if err != nil {
		t.Fatalf("IsDownranked() error: %v", err)
	}
	if marked {
		t.Fatal("expected no downrank marker before Downrank()")
	}

	if err := store.Downrank(ctx, msg, "glorification/promotion"); err != nil {
		t.Fatalf("Downrank() error: %v", err)
	}

	marked, err = store.IsDownranked(ctx, msg)
	if err != nil {
		t.Fatalf("IsDownranked() error: %v", err)
	}
	if !marked {
		t.Error("expected downrank marker after Downrank()")
	}
}
