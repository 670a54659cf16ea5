package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/pkg/tenantctx"
)

// devToken is a local-environment bearer-token shortcut that resolves to a
// fixed dev principal without hitting the JWT verifier. Gated off in
// production.
const devToken = "devtoken"
const devTenantID = "dev"
const devSubject = "dev"

type claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and attaches the authenticated
// tenant id and subject to the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := readBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, domain.ErrUnauthorized)
			return
		}

		if !s.cfg.IsProduction() && token == devToken {
			ctx := tenantctx.WithTenantID(c.Request.Context(), devTenantID)
			ctx = tenantctx.WithSubject(ctx, devSubject)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		if strings.TrimSpace(s.cfg.AuthJWTSecret) == "" {
			AbortWithError(c, domain.ErrUnauthorized)
			return
		}

		parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		}, jwt.WithIssuer(s.cfg.AuthJWTIssuer), jwt.WithAudience(s.cfg.AuthJWTAudience))
		if err != nil || !parsed.Valid {
			AbortWithError(c, domain.ErrUnauthorized)
			return
		}

		tokenClaims, ok := parsed.Claims.(*claims)
		if !ok || strings.TrimSpace(tokenClaims.TenantID) == "" {
			AbortWithError(c, domain.ErrUnauthorized)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tokenClaims.TenantID)
		if subject := strings.TrimSpace(tokenClaims.Subject); subject != "" {
			ctx = tenantctx.WithSubject(ctx, subject)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func readBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
