package catalog

import (
	"context"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
)

// Initial load backoff: start at 200ms, double each retry, cap at 5s.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// LoadInitial retries Refresh until the first snapshot is in place or ctx is
// cancelled. A source that is briefly unreachable at startup, such as a
// broker still coming up, does not need a restart.
func (c *Catalog) LoadInitial(ctx context.Context) error {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := c.Refresh(ctx)
		if err == nil {
			return nil
		}
		c.logger.Warn("initial snapshot load failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !c.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (c *Catalog) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
