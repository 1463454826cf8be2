package worker

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Evicter drops sessions that have been idle past their TTL.
type Evicter interface {
	Evict() int
}

// StartSessionJanitor evicts idle sessions every interval until ctx ends.
func StartSessionJanitor(ctx context.Context, sessions Evicter, interval time.Duration, logger *log.Logger) {
	logger.Info("starting session janitor", "interval", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Evict(); n > 0 {
					logger.Debug("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}
