package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveSwagger(cfg config.SwaggerConfig, auth gin.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/swagger/*any", SwaggerProtection(cfg, auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }

	tests := []struct {
		name   string
		cfg    config.SwaggerConfig
		auth   gin.HandlerFunc
		remote string
		status int
	}{
		{"disabled", config.SwaggerConfig{Enabled: false}, nil, "10.0.0.1:1234", http.StatusNotFound},
		{"open", config.SwaggerConfig{Enabled: true}, nil, "10.0.0.1:1234", http.StatusOK},
		{"single ip allowed", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, nil, "10.0.0.1:1234", http.StatusOK},
		{"cidr allowed", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, nil, "10.2.3.4:1234", http.StatusOK},
		{"outside allow list", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, nil, "192.168.1.1:1234", http.StatusForbidden},
		{"auth required and refused", config.SwaggerConfig{Enabled: true, RequireAuth: true}, deny, "10.0.0.1:1234", http.StatusUnauthorized},
		{"auth not required", config.SwaggerConfig{Enabled: true}, deny, "10.0.0.1:1234", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveSwagger(tt.cfg, tt.auth, tt.remote)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w).Code)
			}
		})
	}
}
