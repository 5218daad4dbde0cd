// Package collaborator contains HTTP adapters for the external scoring
// services: document analyzer, face matcher, liveness detector and deepfake
// detector. Each is a stateless request/response capability invoked with a
// media reference and returning a score plus structured metadata. The
// orchestrator never sees model internals, only the uniform contract below.
package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/domain"
)

// Request is the uniform invocation payload sent to every collaborator.
type Request struct {
	SessionID string  `json:"session_id"`
	MediaRef  string  `json:"media_ref"`
	Context   Context `json:"context"`
}

// Context carries the short cross-check hints a collaborator may use.
type Context struct {
	DocumentType      string `json:"document_type,omitempty"`
	ReferenceMediaRef string `json:"reference_media_ref,omitempty"`
	ExpectedName      string `json:"expected_name,omitempty"`
}

// Result is the uniform score/confidence/passed triple every collaborator
// returns, plus its free-form details payload.
type Result struct {
	Score        float64                `json:"score"`
	Confidence   float64                `json:"confidence"`
	Passed       bool                   `json:"passed"`
	Details      map[string]interface{} `json:"details"`
	ModelVersion string                 `json:"model_version"`
}

// ExtractedFields are the document fields the analyzer reads off the image.
type ExtractedFields struct {
	FullName       string `json:"full_name"`
	DateOfBirth    string `json:"date_of_birth"`
	DocumentNumber string `json:"document_number"`
	ExpiryDate     string `json:"expiry_date"`
	IssuingCountry string `json:"issuing_country"`
}

// DocumentResult extends Result with the analyzer-specific outputs.
type DocumentResult struct {
	Result
	Fields            ExtractedFields `json:"fields"`
	IsAuthentic       bool            `json:"is_authentic"`
	TamperingDetected bool            `json:"tampering_detected"`
}

// errorBody is the JSON shape collaborators use for non-2xx responses.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) client {
	return client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// post sends a JSON request and decodes the response into out. Transport
// failures and 5xx responses surface as ErrCollaboratorUnavailable; a 4xx
// with a known error_code maps to a user-correctable failure.
func (c client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal collaborator request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build collaborator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, domain.ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode collaborator response: %w", domain.ErrCollaboratorUnavailable)
		}
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s returned %d: %w", path, resp.StatusCode, domain.ErrCollaboratorUnavailable)
	default:
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		switch eb.ErrorCode {
		case domain.CodeFaceNotDetected, domain.CodeMultipleFaces, domain.CodeLowImageQuality, domain.CodeNoMatch:
			return &domain.CorrectableError{Code: eb.ErrorCode, Remediation: domain.RemediationFor(eb.ErrorCode)}
		}
		return fmt.Errorf("%s returned %d (%s): %w", path, resp.StatusCode, eb.Error, domain.ErrCollaboratorUnavailable)
	}
}

// DocumentAnalyzer invokes the OCR + authenticity scoring service.
type DocumentAnalyzer struct{ client }

func NewDocumentAnalyzer(cfg config.CollaboratorConfig) *DocumentAnalyzer {
	return &DocumentAnalyzer{newClient(cfg.DocumentAnalyzerURL, cfg.Timeout)}
}

func (a *DocumentAnalyzer) Analyze(ctx context.Context, req Request) (*DocumentResult, error) {
	var out DocumentResult
	if err := a.post(ctx, "/v1/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FaceMatcher invokes the face similarity scoring service.
type FaceMatcher struct{ client }

func NewFaceMatcher(cfg config.CollaboratorConfig) *FaceMatcher {
	return &FaceMatcher{newClient(cfg.FaceMatcherURL, cfg.Timeout)}
}

func (m *FaceMatcher) Match(ctx context.Context, req Request) (*Result, error) {
	var out Result
	if err := m.post(ctx, "/v1/match", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LivenessDetector invokes the anti-spoofing service.
type LivenessDetector struct{ client }

func NewLivenessDetector(cfg config.CollaboratorConfig) *LivenessDetector {
	return &LivenessDetector{newClient(cfg.LivenessDetectorURL, cfg.Timeout)}
}

func (d *LivenessDetector) Detect(ctx context.Context, req Request) (*Result, error) {
	var out Result
	if err := d.post(ctx, "/v1/liveness", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeepfakeDetector invokes the synthetic-media classifier. Its score reads
// the opposite way from the others: higher means more likely synthetic.
type DeepfakeDetector struct{ client }

func NewDeepfakeDetector(cfg config.CollaboratorConfig) *DeepfakeDetector {
	return &DeepfakeDetector{newClient(cfg.DeepfakeDetectorURL, cfg.Timeout)}
}

func (d *DeepfakeDetector) Detect(ctx context.Context, req Request) (*Result, error) {
	var out Result
	if err := d.post(ctx, "/v1/deepfake", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
