package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"sabitax/internal/ledger"
	"sabitax/internal/middleware"
	"sabitax/internal/optimization"
	"sabitax/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	jwtSecret     = []byte("handler-test-secret")
	webhookSecret = "hook-secret"
)

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwtSecret)
	require.NoError(t, err)
	return signed
}

type routes interface {
	RegisterRoutes(*gin.RouterGroup)
}

func newRouter(handlers ...routes) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(v1)
	}
	return r
}

type call struct {
	method string
	path   string
	body   interface{}
	header map[string]string
}

func serve(t *testing.T, r *gin.Engine, c call) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		if raw, ok := c.body.(string); ok {
			body.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&body).Encode(c.body))
		}
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func bearer(t *testing.T, userID uuid.UUID) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token(t, userID, "user")}
}

// --- service stubs ---

type stubTax struct {
	obligations  func(asOf time.Time) (service.ObligationsResponse, error)
	estimate     func(period ledger.Period) (service.EstimateResponse, error)
	optimization func(period ledger.Period) (optimization.Report, error)
}

func (s *stubTax) GetObligations(_ context.Context, _ uuid.UUID, asOf time.Time) (service.ObligationsResponse, error) {
	return s.obligations(asOf)
}

func (s *stubTax) GetEstimate(_ context.Context, _ uuid.UUID, period ledger.Period) (service.EstimateResponse, error) {
	return s.estimate(period)
}

func (s *stubTax) GetOptimization(_ context.Context, _ uuid.UUID, period ledger.Period) (optimization.Report, error) {
	return s.optimization(period)
}

type stubFilings struct {
	file   func(userID uuid.UUID, req service.DeclarationRequest) (service.FilingResponse, error)
	submit func(userID, id uuid.UUID) (service.FilingResponse, error)
	ack    func(ack service.FilingAcknowledgment) (service.FilingResponse, error)
	list   func(query service.FilingQuery) ([]service.FilingResponse, int64, error)
}

func (s *stubFilings) CreateDraft(_ context.Context, userID uuid.UUID, req service.DeclarationRequest) (service.FilingResponse, error) {
	return s.file(userID, req)
}

func (s *stubFilings) Submit(_ context.Context, userID, id uuid.UUID) (service.FilingResponse, error) {
	return s.submit(userID, id)
}

func (s *stubFilings) FileReturn(_ context.Context, userID uuid.UUID, req service.DeclarationRequest) (service.FilingResponse, error) {
	return s.file(userID, req)
}

func (s *stubFilings) Acknowledge(_ context.Context, ack service.FilingAcknowledgment) (service.FilingResponse, error) {
	return s.ack(ack)
}

func (s *stubFilings) List(_ context.Context, _ uuid.UUID, query service.FilingQuery) ([]service.FilingResponse, int64, error) {
	return s.list(query)
}

func (s *stubFilings) Get(_ context.Context, userID, id uuid.UUID) (service.FilingResponse, error) {
	return s.submit(userID, id)
}

type stubTin struct {
	apply  func(req service.TinApplyRequest) (service.TinApplicationResponse, error)
	status func(update service.TinStatusUpdate) (service.TinApplicationResponse, error)
}

func (s *stubTin) Apply(_ context.Context, _ uuid.UUID, req service.TinApplyRequest) (service.TinApplicationResponse, error) {
	return s.apply(req)
}

func (s *stubTin) GetStatus(context.Context, uuid.UUID) (service.TinStatusResponse, error) {
	return service.TinStatusResponse{Status: "none"}, nil
}

func (s *stubTin) GetApplication(_ context.Context, _, id uuid.UUID) (service.TinApplicationResponse, error) {
	return service.TinApplicationResponse{ApplicationID: id.String()}, nil
}

func (s *stubTin) AttachDocument(_ context.Context, _, id uuid.UUID, _ service.TinDocumentRequest) (service.TinApplicationResponse, error) {
	return service.TinApplicationResponse{ApplicationID: id.String(), HasUtilityBill: true}, nil
}

func (s *stubTin) ProcessStatus(_ context.Context, update service.TinStatusUpdate) (service.TinApplicationResponse, error) {
	return s.status(update)
}

type stubAudit struct {
	query service.AuditQuery
}

func (s *stubAudit) GetAuditLogs(_ context.Context, query service.AuditQuery) ([]service.AuditLogResponse, int64, error) {
	s.query = query
	return []service.AuditLogResponse{{Action: "SUBMIT_FILING", Actor: "user"}}, 1, nil
}

func newAuth() *middleware.Auth { return middleware.NewAuth(jwtSecret) }

func nop() zerolog.Logger { return zerolog.Nop() }
