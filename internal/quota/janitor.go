package quota

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically sweeps stale records from a Tracker so the store does not
// grow without bound as new clients show up day after day.
type Janitor struct {
	tracker  *Tracker
	logger   *zerolog.Logger
	interval time.Duration
}

// NewJanitor creates a janitor sweeping tracker every interval.
// A nil logger disables logging.
func NewJanitor(tracker *Tracker, interval time.Duration, logger *zerolog.Logger) *Janitor {
	return &Janitor{
		tracker:  tracker,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until ctx is canceled. It returns immediately if the interval is not positive.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := j.tracker.Sweep()
			if j.logger != nil && removed > 0 {
				j.logger.Debug().
					Int("removed", removed).
					Int("remaining", j.tracker.Len()).
					Msg("swept stale usage records")
			}
		}
	}
}
