package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veriflow/orchestrator/internal/application/verification"
	"github.com/veriflow/orchestrator/internal/domain"
)

// --- mock ---

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) CreateSession(ctx context.Context, userID, ip, ua string) (*domain.VerificationSession, error) {
	args := m.Called(ctx, userID, ip, ua)
	if s, _ := args.Get(0).(*domain.VerificationSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) SubmitDocument(ctx context.Context, sessionID, userID string, in verification.SubmitDocumentInput) (*domain.VerificationSession, error) {
	args := m.Called(ctx, sessionID, userID, in)
	if s, _ := args.Get(0).(*domain.VerificationSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) SubmitSelfie(ctx context.Context, sessionID, userID string, selfie verification.ImageUpload) (*domain.VerificationSession, error) {
	args := m.Called(ctx, sessionID, userID, selfie)
	if s, _ := args.Get(0).(*domain.VerificationSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) RunDecision(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error) {
	args := m.Called(ctx, sessionID, userID)
	if s, _ := args.Get(0).(*domain.VerificationSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) RetryStage(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error) {
	args := m.Called(ctx, sessionID, userID)
	if s, _ := args.Get(0).(*domain.VerificationSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) Get(ctx context.Context, sessionID, userID string, includeMedia bool) (*domain.VerificationSession, error) {
	args := m.Called(ctx, sessionID, userID, includeMedia)
	if s, _ := args.Get(0).(*domain.VerificationSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) ListByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.VerificationSession, string, error) {
	args := m.Called(ctx, userID, limit, cursor)
	return args.Get(0).([]domain.VerificationSession), args.String(1), args.Error(2)
}

// --- helpers ---

func testRouter(svc verification.Service) http.Handler {
	h := NewSessionHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/v1/sessions", h.Create)
	r.Get("/v1/sessions/{id}", h.Get)
	r.Post("/v1/sessions/{id}/selfie", h.SubmitSelfie)
	r.Post("/v1/sessions/{id}/decision", h.RunDecision)
	return r
}

func selfieForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("selfie", "selfie.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not-really-a-jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

// --- tests ---

func TestCreateSession(t *testing.T) {
	svc := new(mockVerificationSvc)
	// The audit IP must be the proxied client address, not the proxy's.
	svc.On("CreateSession", mock.Anything, mock.Anything, "203.0.113.9", mock.Anything).
		Return(&domain.VerificationSession{SessionID: "ses-1", Status: domain.StatusCreated}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got domain.VerificationSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ses-1", got.SessionID)
	assert.Equal(t, domain.StatusCreated, got.Status)
	svc.AssertExpectations(t)
}

func TestGetSessionNotFound(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("Get", mock.Anything, "missing", mock.Anything, false).Return(nil, domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitSelfieCorrectableFailure(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("SubmitSelfie", mock.Anything, "ses-1", mock.Anything, mock.Anything).
		Return(nil, &domain.CorrectableError{Code: domain.CodeFaceNotDetected, Remediation: domain.RemediationFor(domain.CodeFaceNotDetected)})

	body, contentType := selfieForm(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/ses-1/selfie", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env CorrectableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, domain.CodeFaceNotDetected, env.ErrorCode)
	assert.NotEmpty(t, env.Remediation)
}

func TestSubmitSelfieMissingFile(t *testing.T) {
	svc := new(mockVerificationSvc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/ses-1/selfie", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "SubmitSelfie")
}

func TestRunDecisionWrongState(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("RunDecision", mock.Anything, "ses-1", mock.Anything).Return(nil, domain.ErrInvalidState)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/ses-1/decision", nil)
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRunDecisionCollaboratorDown(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("RunDecision", mock.Anything, "ses-1", mock.Anything).Return(nil, domain.ErrCollaboratorUnavailable)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/ses-1/decision", nil)
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
