package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/pkg/tenantctx"
)

func tenantFromRequest(c *gin.Context) (string, bool) {
	return tenantctx.TenantID(c.Request.Context())
}

// ScoreInvoice handles POST /scoreInvoice.
func (s *Server) ScoreInvoice(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok || tenantID == "" {
		AbortWithError(c, domain.ErrUnauthorized)
		return
	}

	var in domain.InvoiceIn
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, domain.ErrLineItemsRequired)
		return
	}

	resp, err := s.orchestrator.ScoreInvoice(c.Request.Context(), tenantID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetDecision handles GET /invoice/{id}/decision.
func (s *Server) GetDecision(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok || tenantID == "" {
		AbortWithError(c, domain.ErrUnauthorized)
		return
	}

	invoiceID := c.Param("id")
	dec, err := s.repo.GetLatestDecision(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice_id":      dec.InvoiceID,
		"risk_score":      dec.RiskScore,
		"decision":        dec.Decision,
		"reason_codes":    dec.ReasonCodes,
		"model_id":        dec.ModelID,
		"model_version":   dec.ModelVersion,
		"ruleset_version": dec.RulesetVersion,
		"created_at":      dec.CreatedAt,
	})
}
