package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/smallbiznis/sieve/internal/observability"
	"github.com/smallbiznis/sieve/internal/observability/logger"
	"github.com/smallbiznis/sieve/internal/observability/tracing"
)

// Module wires the gin engine, registers routes, and starts the HTTP
// listener alongside the rest of the application's fx lifecycle.
var Module = fx.Module("httpapi",
	fx.Provide(NewEngine, NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the same middleware chain order the
// rest of this codebase's HTTP surfaces use: recovery, then structured
// logging, then tracing.
func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{Debug: obsCfg.Debug()}))
	r.Use(tracing.GinMiddleware())
	return r
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
