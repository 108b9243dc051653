package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error { return nil }
func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newJWTRouter(cfg JWTConfig, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), JWTAuth(cfg))
	r.GET("/test", handler)
	return r
}

func serveWithToken(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token := issueToken(t, svc, "user-1", "ledger:read")

	var actor appledger.Actor
	var actorID string
	r := newJWTRouter(JWTConfig{JWTService: svc}, func(c *gin.Context) {
		var ok bool
		actor, ok = Actor(c)
		assert.True(t, ok)
		actorID = logger.GetActorID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := serveWithToken(r, token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, "clerk", actor.Username)
	assert.Equal(t, []string{"ledger:read"}, actor.Permissions)
	assert.Equal(t, "user-1", actorID)
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	expired := issueToken(t, newTestJWTService(-time.Minute), "user-1")
	foreign := issueToken(t, auth.NewJWTService(config.JWTConfig{
		Secret:                "a-completely-different-signing-secret",
		AccessTokenExpiration: time.Minute,
		Issuer:                "ledger-test",
	}), "user-1")

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic abc", dto.ErrCodeUnauthorized},
		{"empty bearer", BearerPrefix, dto.ErrCodeUnauthorized},
		{"garbage", BearerPrefix + "not-a-jwt", dto.ErrCodeTokenInvalid},
		{"foreign signature", BearerPrefix + foreign, dto.ErrCodeTokenInvalid},
		{"expired", BearerPrefix + expired, dto.ErrCodeTokenExpired},
	}

	r := newJWTRouter(JWTConfig{JWTService: svc}, func(c *gin.Context) {
		t.Error("handler must not run")
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, tt.code, errInfo.Code)
			assert.NotEmpty(t, errInfo.RequestID)
		})
	}
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token := issueToken(t, svc, "user-1")
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	revocations := auth.NewInMemoryRevocationList()
	require.NoError(t, revocations.Revoke(context.Background(), claims.ID, time.Minute))

	r := newJWTRouter(JWTConfig{JWTService: svc, Revocations: revocations}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serveWithToken(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w).Code)

	w = serveWithToken(r, issueToken(t, svc, "user-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_RevocationLookupFailureAllows(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	r := newJWTRouter(JWTConfig{JWTService: svc, Revocations: failingRevocations{}}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serveWithToken(r, issueToken(t, svc, "user-1"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActor_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := Actor(c)
	assert.False(t, ok)
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
}
