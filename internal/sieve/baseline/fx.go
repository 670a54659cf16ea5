package baseline

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/sieve/internal/clock"
	"github.com/smallbiznis/sieve/internal/ratelimit"
	"github.com/smallbiznis/sieve/internal/sieve/repository"
)

var Module = fx.Module("sieve.baseline",
	fx.Provide(newJob),
	fx.Invoke(registerLifecycle),
)

func newJob(repo *repository.Repository, limiter *ratelimit.ScoreInvoiceLimiter, log *zap.Logger) *Job {
	return New(repo, limiter, clock.New(), log)
}

// registerLifecycle starts the recompute loop alongside the HTTP server and
// stops it on shutdown via a standard fx.Lifecycle OnStart/OnStop hook pair.
func registerLifecycle(lc fx.Lifecycle, job *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go job.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
