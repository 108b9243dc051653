package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// memoryAttachments stores uploads in memory and fails files named "broken.pdf"
type memoryAttachments struct {
	mu       sync.Mutex
	uploaded []string
}

func (m *memoryAttachments) Upload(_ context.Context, f appledger.AttachmentFile) (string, error) {
	if f.Name == "broken.pdf" {
		return "", errors.New("storage unavailable")
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return "", err
	}
	url := "https://files.example.com/ledger/" + f.Name
	m.mu.Lock()
	m.uploaded = append(m.uploaded, url)
	m.mu.Unlock()
	return url, nil
}

type stubLinker struct{}

func (stubLinker) DownloadURL(_ context.Context, ref string) (string, time.Time, error) {
	return ref + "?signature=abc", time.Now().Add(time.Minute), nil
}

type testServer struct {
	router      *gin.Engine
	jwt         *auth.JWTService
	attachments *memoryAttachments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.InwardLotModel{},
		&models.ReservationModel{},
		&models.AuditEntryModel{},
		&models.CodeSequenceModel{},
	))

	logger := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db)
	locker := cache.NewInMemoryKeyLocker(5 * time.Second)
	authz := auth.NewPermissionAuthorizer()
	idempotency := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idempotency.Close() })
	attachments := &memoryAttachments{}

	alloc := appledger.NewAllocationService(scope, locker, authz, appledger.DefaultOptions(), logger)
	alloc.SetAttachmentStore(attachments)
	alloc.SetIdempotencyStore(idempotency)
	approval := appledger.NewApprovalService(scope, locker, authz, logger)
	queries := appledger.NewQueryService(scope, authz)
	inward := appledger.NewInwardLotService(scope, authz, logger)

	ledgerHandler := NewLedgerHandler(alloc, approval, queries)
	ledgerHandler.SetAttachmentLinker(stubLinker{})
	lotHandler := NewInwardLotHandler(inward)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "handler-test-secret-with-enough-length",
		AccessTokenExpiration: time.Hour,
		Issuer:                "ledger-test",
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1/ledger", middleware.JWTAuth(middleware.JWTConfig{JWTService: jwtService}))
	api.GET("/parents", ledgerHandler.ListParents)
	api.POST("/reservations", ledgerHandler.CreateReservation)
	api.GET("/reservations/:id", ledgerHandler.GetReservation)
	api.PATCH("/reservations/:id", ledgerHandler.ReviseReservation)
	api.POST("/reservations/:id/transition", ledgerHandler.TransitionReservation)
	api.GET("/reservations/:id/attachments/:index", ledgerHandler.GetAttachment)
	api.GET("/ledger/:parent_kind/:parent_id", ledgerHandler.GetLedger)
	api.POST("/inward-lots", lotHandler.RegisterInwardLot)
	api.GET("/inward-lots/:id", lotHandler.GetInwardLot)

	return &testServer{router: r, jwt: jwtService, attachments: attachments}
}

func (s *testServer) token(t *testing.T, perms ...string) string {
	t.Helper()
	if len(perms) == 0 {
		perms = []string{auth.PermissionAll}
	}
	token, _, err := s.jwt.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:      "clerk-1",
		Username:    "clerk",
		Permissions: perms,
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token == "" {
		token = s.token(t)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, "")
}

// apiResponse decodes the envelope with typed data
type apiResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) apiResponse[T] {
	t.Helper()
	var resp apiResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (s *testServer) registerLot(t *testing.T, primary, secondary string, banked bool) appledger.InwardLotResponse {
	t.Helper()
	body := map[string]any{
		"natural_key":       fmt.Sprintf("SR-%d", time.Now().UnixNano()),
		"commodity":         "maize",
		"offered_primary":   primary,
		"offered_secondary": secondary,
	}
	if banked {
		body["bank"] = map[string]string{
			"bank_name":    "First Bank",
			"branch_name":  "Central",
			"account_ref":  "ACC-1",
			"loan_account": "LN-1",
		}
	}
	w := s.doJSON(t, http.MethodPost, "/api/v1/ledger/inward-lots", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[appledger.InwardLotResponse](t, w).Data
}

func (s *testServer) reserve(t *testing.T, kind, parentKind, parentID, primary, secondary string) *httptest.ResponseRecorder {
	t.Helper()
	return s.doJSON(t, http.MethodPost, "/api/v1/ledger/reservations", map[string]any{
		"kind":               kind,
		"parent_kind":        parentKind,
		"parent_id":          parentID,
		"reserved_primary":   primary,
		"reserved_secondary": secondary,
		"attachment_refs":    []string{"https://files.example.com/ledger/release.pdf"},
	})
}

func (s *testServer) transition(t *testing.T, id, status, remark string) *httptest.ResponseRecorder {
	t.Helper()
	return s.doJSON(t, http.MethodPost, "/api/v1/ledger/reservations/"+id+"/transition", map[string]string{
		"status": status,
		"remark": remark,
	})
}
