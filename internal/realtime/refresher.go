package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Refresher keeps a cached view current: every matching change event and a
// fixed-interval fallback tick both schedule the refetch callback. Events
// arriving within the debounce window collapse into a single refetch, so a
// notification burst does not amplify into a fetch storm.
type Refresher struct {
	client   *redis.Client
	channel  string
	table    string
	interval time.Duration
	debounce time.Duration
	refetch  func(context.Context)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher watches for change events on table (empty matches all tables).
func NewRefresher(client *redis.Client, channel, table string, interval, debounce time.Duration, refetch func(context.Context)) *Refresher {
	return &Refresher{
		client:   client,
		channel:  channel,
		table:    table,
		interval: interval,
		debounce: debounce,
		refetch:  refetch,
	}
}

// Start performs the initial fetch, then subscribes and launches the
// fallback ticker. Call Stop to tear everything down.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return err
	}

	r.cancel = cancel
	r.done = make(chan struct{})
	r.refetch(ctx)

	go r.loop(ctx, sub)
	return nil
}

// Stop cancels the subscription and the ticker and waits for the loop to
// drain. No refetch fires after Stop returns.
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

func (r *Refresher) loop(ctx context.Context, sub *redis.PubSub) {
	defer close(r.done)
	defer func() { _ = sub.Close() }()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	events := sub.Channel()

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			if r.table != "" && event.Table != r.table {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				pending = timer.C
			}
		case <-pending:
			timer = nil
			pending = nil
			r.refetch(ctx)
		case <-ticker.C:
			r.refetch(ctx)
		}
	}
}
