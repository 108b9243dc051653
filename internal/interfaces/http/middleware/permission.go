package middleware

import (
	"net/http"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RequireAnyAction lets the request through when the token grants at least
// one of actions, or every ledger action.
// The services check authority again; this only rejects early.
func RequireAnyAction(actions ...appledger.Action) gin.HandlerFunc {
	perms := make([]string, 0, len(actions)+1)
	perms = append(perms, auth.PermissionAll)
	for _, a := range actions {
		perms = append(perms, auth.Permission(a))
	}
	return RequireAnyPermission(perms...)
}

// RequireAnyPermission lets the request through when the token holds at least one of permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if !claims.HasAnyPermission(permissions...) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Missing required permission", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
