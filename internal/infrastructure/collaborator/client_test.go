package collaborator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/domain"
)

func cfgFor(url string) config.CollaboratorConfig {
	return config.CollaboratorConfig{
		DocumentAnalyzerURL: url,
		FaceMatcherURL:      url,
		LivenessDetectorURL: url,
		DeepfakeDetectorURL: url,
		Timeout:             2 * time.Second,
	}
}

func TestFaceMatcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/match", r.URL.Path)
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)
		assert.Equal(t, "s3://bucket/doc-front", req.Context.ReferenceMediaRef)

		_ = json.NewEncoder(w).Encode(Result{Score: 91.2, Confidence: 0.93, Passed: true, ModelVersion: "facenet-2.1"})
	}))
	defer srv.Close()

	res, err := NewFaceMatcher(cfgFor(srv.URL)).Match(context.Background(), Request{
		SessionID: "sess-1",
		MediaRef:  "s3://bucket/selfie",
		Context:   Context{ReferenceMediaRef: "s3://bucket/doc-front"},
	})
	require.NoError(t, err)
	assert.Equal(t, 91.2, res.Score)
	assert.True(t, res.Passed)
}

func TestDocumentAnalyzer_ReturnsExtractedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze", r.URL.Path)
		_ = json.NewEncoder(w).Encode(DocumentResult{
			Result:      Result{Score: 88, Confidence: 0.9, Passed: true},
			Fields:      ExtractedFields{FullName: "Jane Roe", DocumentNumber: "X123"},
			IsAuthentic: true,
		})
	}))
	defer srv.Close()

	res, err := NewDocumentAnalyzer(cfgFor(srv.URL)).Analyze(context.Background(), Request{SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", res.Fields.FullName)
	assert.True(t, res.IsAuthentic)
	assert.False(t, res.TamperingDetected)
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLivenessDetector(cfgFor(srv.URL)).Detect(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
}

func TestClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	_, err := NewDeepfakeDetector(cfgFor("http://127.0.0.1:1")).Detect(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
}

func TestClient_CorrectableCodeMapsToCorrectableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_code": domain.CodeMultipleFaces, "error": "two faces found"})
	}))
	defer srv.Close()

	_, err := NewFaceMatcher(cfgFor(srv.URL)).Match(context.Background(), Request{})
	require.ErrorIs(t, err, domain.ErrUserCorrectable)

	var ce *domain.CorrectableError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.CodeMultipleFaces, ce.Code)
	assert.Equal(t, "ensure only one face is in frame", ce.Remediation)
}

func TestClient_UnknownClientErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "malformed"})
	}))
	defer srv.Close()

	_, err := NewFaceMatcher(cfgFor(srv.URL)).Match(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
}
