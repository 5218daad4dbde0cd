// Package verification implements the session state machine: it sequences
// document intake, face matching, liveness and deepfake checks, and risk
// scoring into one auditable session, handling partial failures, retries and
// terminal decisions.
package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/veriflow/orchestrator/internal/application/decision"
	"github.com/veriflow/orchestrator/internal/domain"
	"github.com/veriflow/orchestrator/internal/infrastructure/collaborator"
	"github.com/veriflow/orchestrator/internal/infrastructure/sns"
	"github.com/veriflow/orchestrator/internal/pkg/id"
	"github.com/veriflow/orchestrator/internal/pkg/validate"
	"golang.org/x/sync/errgroup"
)

const presignTTL = 15 * time.Minute

// SessionRepo is the session store contract the orchestrator requires.
type SessionRepo interface {
	Put(ctx context.Context, s *domain.VerificationSession) error
	Get(ctx context.Context, sessionID string) (*domain.VerificationSession, error)
	UpdateVersioned(ctx context.Context, sessionID string, expectedVersion int64, updates map[string]interface{}) error
	ListByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.VerificationSession, string, error)
}

// DocumentRepo is the document record store contract.
type DocumentRepo interface {
	Put(ctx context.Context, d *domain.DocumentRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.DocumentRecord, error)
}

// StageResultRepo is the append-only stage result store contract.
type StageResultRepo interface {
	Put(ctx context.Context, sr *domain.StageResult) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.StageResult, error)
}

// MediaStore is the raw media storage contract.
type MediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// Collaborator contracts. Each is an opaque scoring capability; the
// orchestrator never encodes their internals.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, req collaborator.Request) (*collaborator.DocumentResult, error)
}

type FaceMatcher interface {
	Match(ctx context.Context, req collaborator.Request) (*collaborator.Result, error)
}

type LivenessDetector interface {
	Detect(ctx context.Context, req collaborator.Request) (*collaborator.Result, error)
}

type DeepfakeDetector interface {
	Detect(ctx context.Context, req collaborator.Request) (*collaborator.Result, error)
}

// ImageUpload is one incoming media file.
type ImageUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// SubmitDocumentInput carries one document upload.
type SubmitDocumentInput struct {
	DocumentType string `validate:"required"`
	Front        ImageUpload
	Back         *ImageUpload
}

// Service drives verification sessions through the state machine.
type Service interface {
	CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*domain.VerificationSession, error)
	SubmitDocument(ctx context.Context, sessionID, userID string, in SubmitDocumentInput) (*domain.VerificationSession, error)
	SubmitSelfie(ctx context.Context, sessionID, userID string, selfie ImageUpload) (*domain.VerificationSession, error)
	RunDecision(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error)
	RetryStage(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error)
	Get(ctx context.Context, sessionID, userID string, includeMedia bool) (*domain.VerificationSession, error)
	ListByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.VerificationSession, string, error)
}

// Deps holds everything the service needs.
type Deps struct {
	Sessions     SessionRepo
	Documents    DocumentRepo
	StageResults StageResultRepo
	Media        MediaStore

	DocumentAnalyzer DocumentAnalyzer
	FaceMatcher      FaceMatcher
	LivenessDetector LivenessDetector
	DeepfakeDetector DeepfakeDetector

	Publisher sns.DecisionPublisher // optional; nil disables decision events
	Engine    *decision.Engine

	RetryCap       int
	MaxUploadBytes int64
}

type service struct {
	deps  Deps
	locks *sessionLocks
}

func NewService(deps Deps) Service {
	return &service{deps: deps, locks: newSessionLocks()}
}

func (s *service) CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*domain.VerificationSession, error) {
	now := time.Now().UTC()
	sess := &domain.VerificationSession{
		SessionID: id.New(),
		UserID:    userID,
		Status:    domain.StatusCreated,
		Decision:  domain.DecisionPending,
		Version:   1,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	slog.Info("session created", "session_id", sess.SessionID, "user_id", userID)
	return sess, nil
}

func (s *service) SubmitDocument(ctx context.Context, sessionID, userID string, in SubmitDocumentInput) (*domain.VerificationSession, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrDecisionFinal)
	}
	if sess.Status != domain.StatusCreated {
		return nil, fmt.Errorf("submitDocument from %s: %w", sess.Status, domain.ErrInvalidState)
	}

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	docType := domain.DocumentType(in.DocumentType)
	if !docType.Valid() {
		return nil, fmt.Errorf("unknown document type %q: %w", in.DocumentType, domain.ErrValidation)
	}
	if err := s.checkImage(in.Front); err != nil {
		return nil, err
	}
	if in.Back != nil {
		if err := s.checkImage(*in.Back); err != nil {
			return nil, err
		}
	}

	frontRef, err := s.deps.Media.Upload(ctx, mediaKey(sessionID, "document-front", in.Front.Filename), in.Front.Reader, in.Front.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store front image: %w", err)
	}
	backRef := ""
	if in.Back != nil {
		backRef, err = s.deps.Media.Upload(ctx, mediaKey(sessionID, "document-back", in.Back.Filename), in.Back.Reader, in.Back.ContentType)
		if err != nil {
			return nil, fmt.Errorf("store back image: %w", err)
		}
	}

	doc := &domain.DocumentRecord{
		DocumentID:    id.New(),
		SessionID:     sessionID,
		Type:          docType,
		FrontImageRef: frontRef,
		BackImageRef:  backRef,
		UploadedAt:    time.Now().UTC(),
	}
	if err := s.deps.Documents.Put(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, sess, domain.StatusDocumentSubmitted, map[string]interface{}{}); err != nil {
		return nil, err
	}

	if err := s.analyzeDocument(ctx, sess, doc); err != nil {
		return nil, err
	}
	return s.view(ctx, sess, false)
}

// analyzeDocument invokes the document analyzer for the given record,
// appends the stage result and advances the session on success. The document
// is accepted even when not authentic: rejection is a scoring concern, not an
// input-validation concern.
func (s *service) analyzeDocument(ctx context.Context, sess *domain.VerificationSession, doc *domain.DocumentRecord) error {
	started := time.Now()
	res, err := s.deps.DocumentAnalyzer.Analyze(ctx, collaborator.Request{
		SessionID: sess.SessionID,
		MediaRef:  doc.FrontImageRef,
		Context:   collaborator.Context{DocumentType: string(doc.Type)},
	})
	elapsed := time.Since(started)

	if err != nil {
		s.recordFailure(ctx, sess.SessionID, domain.VerifyDocument, err, elapsed)
		slog.Warn("document analyzer failed", "session_id", sess.SessionID, "err", err)
		return err
	}

	now := time.Now().UTC()
	processed := *doc
	processed.FullName = res.Fields.FullName
	processed.DateOfBirth = res.Fields.DateOfBirth
	processed.DocumentNumber = res.Fields.DocumentNumber
	processed.ExpiryDate = res.Fields.ExpiryDate
	processed.IssuingCountry = res.Fields.IssuingCountry
	processed.IsAuthentic = &res.IsAuthentic
	processed.TamperingDetected = res.TamperingDetected
	processed.ConfidenceScore = &res.Confidence
	processed.ProcessedAt = &now
	if err := s.deps.Documents.Put(ctx, &processed); err != nil {
		return err
	}

	if err := s.recordResult(ctx, sess.SessionID, domain.VerifyDocument, &res.Result, elapsed); err != nil {
		return err
	}
	return s.transition(ctx, sess, domain.StatusDocumentVerified, map[string]interface{}{
		"document_score": res.Score,
	})
}

func (s *service) SubmitSelfie(ctx context.Context, sessionID, userID string, selfie ImageUpload) (*domain.VerificationSession, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrDecisionFinal)
	}
	// SELFIE_SUBMITTED is allowed so a user can resubmit after a
	// correctable failure without rewinding the state machine.
	if sess.Status != domain.StatusDocumentVerified && sess.Status != domain.StatusSelfieSubmitted {
		return nil, fmt.Errorf("submitSelfie from %s: %w", sess.Status, domain.ErrInvalidState)
	}
	if err := s.checkImage(selfie); err != nil {
		return nil, err
	}

	selfieRef, err := s.deps.Media.Upload(ctx, mediaKey(sessionID, "selfie", selfie.Filename), selfie.Reader, selfie.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store selfie: %w", err)
	}
	if sess.Status == domain.StatusDocumentVerified {
		if err := s.transition(ctx, sess, domain.StatusSelfieSubmitted, map[string]interface{}{
			"selfie_image_ref": selfieRef,
		}); err != nil {
			return nil, err
		}
	} else {
		if err := s.update(ctx, sess, map[string]interface{}{"selfie_image_ref": selfieRef}); err != nil {
			return nil, err
		}
	}
	sess.SelfieImageRef = selfieRef

	if err := s.runSelfieChecks(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(ctx, sess, false)
}

// runSelfieChecks invokes the face matcher and the liveness/deepfake
// detectors concurrently, appends one stage result per check, and advances to
// FACE_VERIFIED when all three succeed. The calls are independent: a failure
// in one does not cancel the others, and total latency is bounded by the
// slowest call rather than the sum.
func (s *service) runSelfieChecks(ctx context.Context, sess *domain.VerificationSession) error {
	docs, err := s.deps.Documents.ListBySession(ctx, sess.SessionID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no document on session %s: %w", sess.SessionID, domain.ErrInvalidState)
	}
	doc := docs[len(docs)-1]

	matchReq := collaborator.Request{
		SessionID: sess.SessionID,
		MediaRef:  sess.SelfieImageRef,
		Context: collaborator.Context{
			ReferenceMediaRef: doc.FrontImageRef,
			ExpectedName:      doc.FullName,
		},
	}
	checkReq := collaborator.Request{SessionID: sess.SessionID, MediaRef: sess.SelfieImageRef}

	type checkOutcome struct {
		res     *collaborator.Result
		err     error
		elapsed time.Duration
	}
	run := func(out *checkOutcome, call func() (*collaborator.Result, error)) func() error {
		return func() error {
			started := time.Now()
			out.res, out.err = call()
			out.elapsed = time.Since(started)
			return nil
		}
	}

	var face, live, deep checkOutcome
	g := new(errgroup.Group)
	g.Go(run(&face, func() (*collaborator.Result, error) { return s.deps.FaceMatcher.Match(ctx, matchReq) }))
	g.Go(run(&live, func() (*collaborator.Result, error) { return s.deps.LivenessDetector.Detect(ctx, checkReq) }))
	g.Go(run(&deep, func() (*collaborator.Result, error) { return s.deps.DeepfakeDetector.Detect(ctx, checkReq) }))
	_ = g.Wait()

	outcomes := []struct {
		typ domain.VerificationType
		out *checkOutcome
	}{
		{domain.VerifyFaceMatch, &face},
		{domain.VerifyLiveness, &live},
		{domain.VerifyDeepfake, &deep},
	}

	var firstErr error
	for _, o := range outcomes {
		if o.out.err != nil {
			s.recordFailure(ctx, sess.SessionID, o.typ, o.out.err, o.out.elapsed)
			// A user-correctable failure beats an outage for reporting:
			// the user can act on it immediately.
			if firstErr == nil || (errors.Is(o.out.err, domain.ErrUserCorrectable) && !errors.Is(firstErr, domain.ErrUserCorrectable)) {
				firstErr = o.out.err
			}
			continue
		}
		if err := s.recordResult(ctx, sess.SessionID, o.typ, o.out.res, o.out.elapsed); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		slog.Warn("selfie checks failed", "session_id", sess.SessionID, "err", firstErr)
		return firstErr
	}

	return s.transition(ctx, sess, domain.StatusFaceVerified, map[string]interface{}{
		"face_match_score": face.res.Score,
		"liveness_score":   live.res.Score,
		"deepfake_score":   deep.res.Score,
	})
}

func (s *service) RunDecision(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	// Idempotent: a decision is made exactly once per session. Re-running on
	// a terminal session returns the existing decision without recomputation
	// or side effects.
	if sess.Status.IsTerminal() {
		return s.view(ctx, sess, false)
	}
	if sess.Status != domain.StatusFaceVerified && sess.Status != domain.StatusRiskScored {
		return nil, fmt.Errorf("runDecision from %s: %w", sess.Status, domain.ErrInvalidState)
	}

	results, err := s.deps.StageResults.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	docs, err := s.deps.Documents.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	latest := domain.LatestResultPerType(results)
	in := decision.Input{}
	for typ, target := range map[domain.VerificationType]*float64{
		domain.VerifyDocument:  &in.DocumentScore,
		domain.VerifyFaceMatch: &in.FaceMatchScore,
		domain.VerifyLiveness:  &in.LivenessScore,
		domain.VerifyDeepfake:  &in.DeepfakeScore,
	} {
		r, ok := latest[typ]
		if !ok {
			return nil, fmt.Errorf("missing %s result: %w", typ, domain.ErrInvalidState)
		}
		*target = r.Score
	}
	in.FaceMatchPassed = latest[domain.VerifyFaceMatch].IsPassed
	for _, d := range docs {
		if d.TamperingDetected {
			in.TamperingDetected = true
		}
	}

	out := s.deps.Engine.Evaluate(in)

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"decision":           string(out.Decision),
		"overall_risk_score": out.OverallRiskScore,
		"risk_level":         string(out.RiskLevel),
		"completed_at":       now.Format(time.RFC3339),
	}
	if out.RejectionReason != "" {
		updates["rejection_reason"] = out.RejectionReason
	}
	if err := s.transition(ctx, sess, domain.SessionStatus(out.Decision), updates); err != nil {
		// A concurrent caller may have finalized first; surface their decision.
		if errors.Is(err, domain.ErrConflict) {
			if current, gErr := s.deps.Sessions.Get(ctx, sessionID); gErr == nil && current.Status.IsTerminal() {
				return s.view(ctx, current, false)
			}
		}
		return nil, err
	}
	sess.Decision = out.Decision
	sess.OverallRiskScore = &out.OverallRiskScore
	sess.RiskLevel = out.RiskLevel
	sess.RejectionReason = out.RejectionReason
	sess.CompletedAt = &now

	s.publish(ctx, sess)
	slog.Info("decision made", "session_id", sessionID, "decision", out.Decision, "risk_score", out.OverallRiskScore)
	return s.view(ctx, sess, false)
}

func (s *service) RetryStage(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrDecisionFinal)
	}

	results, err := s.deps.StageResults.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	latest := domain.LatestResultPerType(results)

	var stage domain.VerificationType
	switch sess.Status {
	case domain.StatusDocumentSubmitted:
		stage = domain.VerifyDocument
		if r, ok := latest[stage]; ok && r.IsPassed {
			return nil, fmt.Errorf("stage %s already passed: %w", stage, domain.ErrInvalidState)
		}
	case domain.StatusSelfieSubmitted:
		// The selfie checks fan out together, so the retry is legal when any
		// of the three is failed or missing, not only the face match.
		for _, typ := range []domain.VerificationType{domain.VerifyFaceMatch, domain.VerifyLiveness, domain.VerifyDeepfake} {
			if r, ok := latest[typ]; !ok || !r.IsPassed {
				stage = typ
				break
			}
		}
		if stage == "" {
			return nil, fmt.Errorf("selfie checks already passed: %w", domain.ErrInvalidState)
		}
	default:
		return nil, fmt.Errorf("retryStage from %s: %w", sess.Status, domain.ErrInvalidState)
	}

	// Exceeding the cap routes to manual review, never rejection: a
	// collaborator outage is not evidence of fraud.
	if sess.RetryCount >= s.deps.RetryCap {
		now := time.Now().UTC()
		if err := s.transition(ctx, sess, domain.StatusManualReview, map[string]interface{}{
			"decision":     string(domain.DecisionManualReview),
			"review_notes": fmt.Sprintf("stage %s unavailable after %d retries", stage, sess.RetryCount),
			"completed_at": now.Format(time.RFC3339),
		}); err != nil {
			return nil, err
		}
		sess.Decision = domain.DecisionManualReview
		sess.CompletedAt = &now
		s.publish(ctx, sess)
		slog.Warn("retry cap exceeded, routed to manual review", "session_id", sessionID, "stage", stage)
		return s.view(ctx, sess, false)
	}

	if err := s.update(ctx, sess, map[string]interface{}{"retry_count": sess.RetryCount + 1}); err != nil {
		return nil, err
	}
	sess.RetryCount++

	switch sess.Status {
	case domain.StatusDocumentSubmitted:
		docs, err := s.deps.Documents.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("no document on session %s: %w", sessionID, domain.ErrInvalidState)
		}
		if err := s.analyzeDocument(ctx, sess, &docs[len(docs)-1]); err != nil {
			return nil, err
		}
	case domain.StatusSelfieSubmitted:
		if err := s.runSelfieChecks(ctx, sess); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, sess, false)
}

func (s *service) Get(ctx context.Context, sessionID, userID string, includeMedia bool) (*domain.VerificationSession, error) {
	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, includeMedia)
}

func (s *service) ListByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.VerificationSession, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.deps.Sessions.ListByUser(ctx, userID, limit, cursor)
}

// owned fetches the session and hides other users' sessions behind not-found.
func (s *service) owned(ctx context.Context, sessionID, userID string) (*domain.VerificationSession, error) {
	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return sess, nil
}

// view loads the child collections onto the session for API responses.
func (s *service) view(ctx context.Context, sess *domain.VerificationSession, includeMedia bool) (*domain.VerificationSession, error) {
	docs, err := s.deps.Documents.ListBySession(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	results, err := s.deps.StageResults.ListBySession(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	if includeMedia {
		for i := range docs {
			if url, err := s.deps.Media.PresignedURL(ctx, docs[i].FrontImageRef, presignTTL); err == nil {
				docs[i].FrontImageURL = url
			}
			if docs[i].BackImageRef != "" {
				if url, err := s.deps.Media.PresignedURL(ctx, docs[i].BackImageRef, presignTTL); err == nil {
					docs[i].BackImageURL = url
				}
			}
		}
	}
	sess.Documents = docs
	sess.StageResults = results
	return sess, nil
}

// transition validates the state-machine edge and persists it together with
// updates under the optimistic version check.
func (s *service) transition(ctx context.Context, sess *domain.VerificationSession, next domain.SessionStatus, updates map[string]interface{}) error {
	if !sess.Status.CanTransitionTo(next) {
		return fmt.Errorf("transition %s -> %s: %w", sess.Status, next, domain.ErrInvalidState)
	}
	updates["status"] = string(next)
	if err := s.deps.Sessions.UpdateVersioned(ctx, sess.SessionID, sess.Version, updates); err != nil {
		return err
	}
	sess.Status = next
	sess.Version++
	applyScores(sess, updates)
	return nil
}

// update persists field changes without a state transition.
func (s *service) update(ctx context.Context, sess *domain.VerificationSession, updates map[string]interface{}) error {
	if err := s.deps.Sessions.UpdateVersioned(ctx, sess.SessionID, sess.Version, updates); err != nil {
		return err
	}
	sess.Version++
	applyScores(sess, updates)
	return nil
}

func applyScores(sess *domain.VerificationSession, updates map[string]interface{}) {
	for field, target := range map[string]**float64{
		"document_score":   &sess.DocumentScore,
		"face_match_score": &sess.FaceMatchScore,
		"liveness_score":   &sess.LivenessScore,
		"deepfake_score":   &sess.DeepfakeScore,
	} {
		if v, ok := updates[field].(float64); ok {
			val := v
			*target = &val
		}
	}
}

func (s *service) recordResult(ctx context.Context, sessionID string, typ domain.VerificationType, res *collaborator.Result, elapsed time.Duration) error {
	conf := res.Confidence
	return s.deps.StageResults.Put(ctx, &domain.StageResult{
		ResultID:         id.New(),
		SessionID:        sessionID,
		Type:             typ,
		Score:            res.Score,
		IsPassed:         res.Passed,
		Confidence:       &conf,
		Details:          res.Details,
		ModelVersion:     res.ModelVersion,
		ProcessedAt:      time.Now().UTC(),
		ProcessingTimeMs: elapsed.Milliseconds(),
	})
}

// recordFailure appends a failed stage result so the audit trail always
// explains why a stage did not complete. Store errors here are logged, not
// returned: the collaborator error is the one the caller needs.
func (s *service) recordFailure(ctx context.Context, sessionID string, typ domain.VerificationType, callErr error, elapsed time.Duration) {
	err := s.deps.StageResults.Put(ctx, &domain.StageResult{
		ResultID:         id.New(),
		SessionID:        sessionID,
		Type:             typ,
		Score:            0,
		IsPassed:         false,
		Details:          map[string]interface{}{"error": callErr.Error()},
		ProcessedAt:      time.Now().UTC(),
		ProcessingTimeMs: elapsed.Milliseconds(),
	})
	if err != nil {
		slog.Error("could not record failed stage result", "session_id", sessionID, "type", typ, "err", err)
	}
}

func (s *service) publish(ctx context.Context, sess *domain.VerificationSession) {
	if s.deps.Publisher == nil {
		return
	}
	ev := sns.DecisionEvent{
		SessionID:        sess.SessionID,
		UserID:           sess.UserID,
		Decision:         sess.Decision,
		RejectionReason:  sess.RejectionReason,
		OverallRiskScore: sess.OverallRiskScore,
		RiskLevel:        sess.RiskLevel,
		DecidedAt:        time.Now().UTC(),
	}
	if err := s.deps.Publisher.PublishDecision(ctx, ev); err != nil {
		slog.Error("could not publish decision event", "session_id", sess.SessionID, "err", err)
	}
}

func (s *service) checkImage(img ImageUpload) error {
	if img.Reader == nil {
		return fmt.Errorf("missing image: %w", domain.ErrValidation)
	}
	if s.deps.MaxUploadBytes > 0 && img.Size > s.deps.MaxUploadBytes {
		return fmt.Errorf("image exceeds %d bytes: %w", s.deps.MaxUploadBytes, domain.ErrValidation)
	}
	switch img.ContentType {
	case "image/jpeg", "image/png":
		return nil
	}
	return fmt.Errorf("unsupported content type %q: %w", img.ContentType, domain.ErrValidation)
}

func mediaKey(sessionID, kind, filename string) string {
	ext := ".jpg"
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		ext = strings.ToLower(filename[i:])
	}
	return fmt.Sprintf("sessions/%s/%s-%s%s", sessionID, kind, id.New(), ext)
}
