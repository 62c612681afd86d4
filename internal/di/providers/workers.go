package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// SweepJob runs the maintenance sweep on a fixed interval.
type SweepJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *SweepJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideSweepJob provides the periodic sweep. A zero interval disables it.
func ProvideSweepJob(i do.Injector) (*SweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sweep := do.MustInvoke[*service.SweepService](i)
	log := do.MustInvoke[*logger.Logger](i).WithField("job", "sweep")

	ctx, cancel := context.WithCancel(context.Background())
	job := &SweepJob{cancel: cancel, done: make(chan struct{})}

	if cfg.Sweep.Interval == 0 {
		close(job.done)
		log.Info("Sweep job disabled by configuration")
		return job, nil
	}

	go func() {
		defer close(job.done)
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		// Initial sweep on startup
		if _, err := sweep.Run(ctx); err != nil {
			log.WithError(err).Warn("Initial sweep failed")
		}

		for {
			select {
			case <-ticker.C:
				if _, err := sweep.Run(ctx); err != nil {
					log.WithError(err).Warn("Sweep failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Sweep job started", "interval", cfg.Sweep.Interval)

	return job, nil
}

// RateLimiterHandle wraps the keyed rate limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-client limiter for mutating routes.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return &RateLimiterHandle{KeyedRateLimiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}, nil
}
