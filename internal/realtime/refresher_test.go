package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRefresher(t *testing.T, table string, counter *atomic.Int64) (*Refresher, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	refresher := NewRefresher(client, "test:changes", table, time.Hour, 50*time.Millisecond, func(context.Context) {
		counter.Add(1)
	})
	return refresher, s
}

func publish(t *testing.T, s *miniredis.Miniredis, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	s.Publish("test:changes", string(payload))
}

func waitForCount(t *testing.T, counter *atomic.Int64, want int64) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d refetches, got %d", want, counter.Load())
}

func TestSingleEventTriggersOneRefetch(t *testing.T) {
	var count atomic.Int64
	refresher, s := setupRefresher(t, "issues", &count)

	if err := refresher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer refresher.Stop()

	waitForCount(t, &count, 1) // initial fetch

	publish(t, s, Event{Table: "issues", Kind: "UPDATE"})
	waitForCount(t, &count, 2)

	// No further fetches without further events.
	time.Sleep(150 * time.Millisecond)
	if got := count.Load(); got != 2 {
		t.Errorf("expected 2 refetches, got %d", got)
	}
}

func TestBurstCoalescesIntoOneRefetch(t *testing.T) {
	var count atomic.Int64
	refresher, s := setupRefresher(t, "issues", &count)

	if err := refresher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer refresher.Stop()

	waitForCount(t, &count, 1)

	for i := 0; i < 5; i++ {
		publish(t, s, Event{Table: "issues", Kind: "INSERT"})
	}
	waitForCount(t, &count, 2)

	time.Sleep(150 * time.Millisecond)
	if got := count.Load(); got != 2 {
		t.Errorf("burst amplified: expected 2 refetches, got %d", got)
	}
}

func TestOtherTablesIgnored(t *testing.T) {
	var count atomic.Int64
	refresher, s := setupRefresher(t, "issues", &count)

	if err := refresher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer refresher.Stop()

	waitForCount(t, &count, 1)

	publish(t, s, Event{Table: "donations", Kind: "INSERT"})
	time.Sleep(150 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("expected event on other table to be ignored, got %d refetches", got)
	}
}

func TestStopPreventsFurtherRefetches(t *testing.T) {
	var count atomic.Int64
	refresher, s := setupRefresher(t, "issues", &count)

	if err := refresher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForCount(t, &count, 1)

	refresher.Stop()
	after := count.Load()

	publish(t, s, Event{Table: "issues", Kind: "UPDATE"})
	time.Sleep(150 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("refetch fired after Stop: %d -> %d", after, got)
	}
}

func TestFallbackTickerRefetches(t *testing.T) {
	var count atomic.Int64
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	refresher := NewRefresher(client, "test:changes", "issues", 60*time.Millisecond, 10*time.Millisecond, func(context.Context) {
		count.Add(1)
	})
	if err := refresher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer refresher.Stop()

	// Initial fetch plus at least one ticker-driven fetch.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count.Load() >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("fallback ticker never fired, refetches=%d", count.Load())
}
