package middleware

import (
	"net/http"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequireAnyAction(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	r := gin.New()
	r.Use(RequestID(), JWTAuth(JWTConfig{JWTService: svc}),
		RequireAnyAction(appledger.ActionApprove, appledger.ActionReject))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		perms  []string
		status int
	}{
		{"exact permission", []string{"ledger:approve"}, http.StatusOK},
		{"second permission", []string{"ledger:read", "ledger:reject"}, http.StatusOK},
		{"wildcard", []string{"ledger:*"}, http.StatusOK},
		{"unrelated permission", []string{"ledger:create"}, http.StatusForbidden},
		{"no permissions", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithToken(r, issueToken(t, svc, "user-1", tt.perms...))
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w).Code)
			}
		})
	}
}

func TestRequireAnyPermission_WithoutClaims(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequireAnyPermission("ledger:read"))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serveWithToken(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Code)
}
