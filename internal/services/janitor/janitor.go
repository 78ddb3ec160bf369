// Package janitor runs the periodic maintenance sweeps: expired auth codes,
// audit retention and buffered api-key last-used writes
package janitor

import (
	"context"
	"sync"
	"time"

	"habitreward/internal/platform/logger"

	auditdomain "habitreward/internal/services/audit/domain"
	authdomain "habitreward/internal/services/auth/domain"
)

// Task is one periodic sweep. Run reports how many rows it touched
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) (int64, error)
}

// Runner drives a set of tasks until the context is cancelled
type Runner struct {
	tasks []Task
}

// New builds a runner over the given tasks
func New(tasks ...Task) *Runner { return &Runner{tasks: tasks} }

// Run starts one ticker loop per task and blocks until ctx is done. Every
// task fires once immediately so a freshly started janitor clears backlog
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range r.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			r.loop(ctx, t)
		}(t)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, t Task) {
	log := logger.Named("janitor").With().Str("task", t.Name).Logger()
	log.Info().Dur("every", t.Every).Msg("sweep scheduled")

	tick := time.NewTicker(t.Every)
	defer tick.Stop()

	for {
		n, err := t.Run(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Error().Err(err).Msg("sweep failed")
		case n > 0:
			log.Info().Int64("rows", n).Msg("sweep done")
		default:
			log.Debug().Msg("sweep done, nothing to do")
		}

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// CodeCleanup sweeps expired login codes
func CodeCleanup(codes authdomain.CodePort) Task {
	return Task{
		Name:  "auth-codes",
		Every: 10 * time.Minute,
		Run:   codes.CleanupExpired,
	}
}

// AuditRetention trims audit entries older than retainDays
func AuditRetention(sweeper auditdomain.SweeperPort, retainDays int) Task {
	return Task{
		Name:  "audit-retention",
		Every: 24 * time.Hour,
		Run: func(ctx context.Context) (int64, error) {
			return sweeper.Cleanup(ctx, retainDays)
		},
	}
}

// KeyFlush drains the in-memory api-key last-used buffer
func KeyFlush(keys authdomain.KeyPort) Task {
	return Task{
		Name:  "api-key-last-used",
		Every: time.Minute,
		Run: func(ctx context.Context) (int64, error) {
			n, err := keys.FlushLastUsed(ctx)
			return int64(n), err
		},
	}
}
