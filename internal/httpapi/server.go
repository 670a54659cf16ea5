// Package httpapi exposes the scoring pipeline over HTTP: POST
// /scoreInvoice, GET /invoice/{id}/decision, and a health check, behind
// bearer auth and tenant scoping.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/sieve/internal/config"
	"github.com/smallbiznis/sieve/internal/sieve/repository"
	"github.com/smallbiznis/sieve/internal/sieve/service"
)

// Server wires the gin engine to the scoring orchestrator and decision
// lookup.
type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	orchestrator *service.Orchestrator
	repo         *repository.Repository
}

// ServerParams is the fx constructor's parameter object, grouping a server's
// many collaborators behind one fx.In struct.
type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Orchestrator *service.Orchestrator
	Repo         *repository.Repository
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("httpapi"),
		orchestrator: p.Orchestrator,
		repo:         p.Repo,
	}
}

// RegisterRoutes mounts every route this service exposes. Called once at
// startup from the fx invoke hook.
func (s *Server) RegisterRoutes() {
	s.engine.Use(ErrorHandlingMiddleware())
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/")
	api.Use(s.AuthRequired())
	api.POST("/scoreInvoice", s.ScoreInvoice)
	api.GET("/invoice/:id/decision", s.GetDecision)
}

// Healthz reports service liveness. The route is registered outside the
// bearer-auth group, so no tenant is attached to the request context and
// tenant is reported as an empty string.
func (s *Server) Healthz(c *gin.Context) {
	tenant, _ := tenantFromRequest(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tenant": tenant})
}
