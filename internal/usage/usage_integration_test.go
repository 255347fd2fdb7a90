package usage_test

import (
	"context"
	"testing"
	"time"

	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/log"
	"github.com/taysluxe/tayai/internal/testutil"
	"github.com/taysluxe/tayai/internal/usage"
)

func TestTrackerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.SetupPostgres(t)
	cfg := &config.Config{
		TierLimits:    map[string]int{"basic": 3, "vip": 0},
		UsageCacheTTL: time.Minute,
	}
	tracker := usage.New(db.Pool, cfg, log.NewNop())
	ctx := context.Background()

	ok, err := tracker.CheckLimit(ctx, "user_a", "basic")
	if err != nil {
		t.Fatalf("CheckLimit: %v", err)
	}
	if !ok {
		t.Fatal("fresh user should be under limit")
	}

	for i := range 3 {
		if err := tracker.Record(ctx, "user_a", 50+i); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	ok, err = tracker.CheckLimit(ctx, "user_a", "basic")
	if err != nil {
		t.Fatalf("CheckLimit: %v", err)
	}
	if ok {
		t.Error("user at limit should be blocked")
	}

	status, err := tracker.Status(ctx, "user_a", "basic")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.MessagesUsed != 3 {
		t.Errorf("MessagesUsed = %d, want 3", status.MessagesUsed)
	}
	if status.TokensUsed != 50+51+52 {
		t.Errorf("TokensUsed = %d, want 153", status.TokensUsed)
	}
	if status.CanSend {
		t.Error("CanSend should be false at limit")
	}

	// Other users are unaffected.
	other, err := tracker.Status(ctx, "user_b", "basic")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if other.MessagesUsed != 0 || !other.CanSend {
		t.Errorf("other user status = %+v", other)
	}
}
