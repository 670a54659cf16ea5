package service

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/sieve/internal/config"
	"github.com/smallbiznis/sieve/internal/ratelimit"
	"github.com/smallbiznis/sieve/internal/sieve/repository"
	"github.com/smallbiznis/sieve/internal/sieve/search"
)

var Module = fx.Module("sieve.service",
	repository.Module,
	search.Module,
	ratelimit.Module,
	fx.Provide(newOrchestrator),
)

// newOrchestrator adapts the concrete repository/limiter types to the
// narrower Store/Limiter ports New expects, and tolerates a nil limiter
// (rate limiting disabled, per ratelimit.NewScoreInvoiceLimiter's contract).
func newOrchestrator(repo *repository.Repository, limiter *ratelimit.ScoreInvoiceLimiter, indexer *search.Indexer, cfg config.Config, log *zap.Logger) *Orchestrator {
	return New(repo, limiter, indexer, cfg, log)
}
