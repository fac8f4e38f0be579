package di

import (
	"context"
	"sync"

	"github.com/samber/do/v2"

	"github.com/omarluq/prompt-relay/internal/config"
	"github.com/omarluq/prompt-relay/internal/quota"
)

// QuotaService owns the usage tracker and its janitor.
type QuotaService struct {
	Tracker *quota.Tracker
	janitor *quota.Janitor
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewQuota creates the tracker with the configured daily limit and keeps the limit live.
func NewQuota(i do.Injector) (*QuotaService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logger := do.MustInvoke[*LoggerService](i).Logger
	cfg := cfgSvc.Get()

	tracker := quota.NewTracker(cfg.Quota.GetDailyLimit())
	interval := cfg.Quota.GetSweepIntervalOption().OrEmpty()

	svc := &QuotaService{
		Tracker: tracker,
		janitor: quota.NewJanitor(tracker, interval, logger),
	}

	cfgSvc.OnReload(func(newCfg *config.Config) error {
		newLimit := newCfg.Quota.GetDailyLimit()
		if oldLimit := tracker.Limit(); oldLimit != newLimit {
			tracker.SetLimit(newLimit)
			logger.Info().
				Int("old_limit", oldLimit).
				Int("new_limit", newLimit).
				Msg("daily limit updated via hot-reload")
		}
		return nil
	})

	return svc, nil
}

// Start runs the janitor in the background until Shutdown or ctx ends.
func (q *QuotaService) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancel != nil {
		return
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go func() {
		defer close(q.done)
		q.janitor.Run(ctx)
	}()
}

// Shutdown implements do.Shutdowner and stops the janitor.
func (q *QuotaService) Shutdown() error {
	q.mu.Lock()
	cancel, done := q.cancel, q.done
	q.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
