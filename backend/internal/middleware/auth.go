package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/models"
)

const (
	PrincipalKey = "principal"
	UserIDKey    = "user_id"
)

type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, bearer string) (models.Principal, error)
}

// Authenticate resolves the Authorization header into a principal and
// stores it on the context. Requests without a valid token stop with 401.
func Authenticate(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "missing bearer token")
			return
		}

		p, err := resolver.ResolvePrincipal(c.Request.Context(), header)
		if err != nil {
			if apperr.IsKind(err, apperr.KindUnauthenticated) {
				abortWithError(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "invalid or expired token")
				return
			}
			abortWithError(c, http.StatusBadGateway, string(apperr.KindUpstream), "could not resolve caller")
			return
		}

		c.Set(PrincipalKey, p)
		c.Set(UserIDKey, p.ID.String())
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// RequireRole admits only principals holding one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, string(apperr.KindUnauthenticated), "authentication required")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, string(apperr.KindForbidden), "role not permitted")
	}
}
