// Package decision implements the scoring and decision engine. It is pure:
// given the same stage results and configuration it always produces the same
// outcome, and it performs no I/O.
package decision

import (
	"fmt"

	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/domain"
)

// Rejection reasons recorded on the session.
const (
	ReasonDocumentTampering = "document_tampering"
	ReasonDeepfakeDetected  = "deepfake_detected"
	ReasonFaceMismatch      = "face_mismatch"
	ReasonLowConfidence     = "low_confidence"
	ReasonSessionExpired    = "session_expired"
)

// Input carries the latest stage results feeding one evaluation.
// All scores are in [0,100].
type Input struct {
	DocumentScore  float64
	FaceMatchScore float64
	LivenessScore  float64
	DeepfakeScore  float64

	TamperingDetected bool
	FaceMatchPassed   bool
}

// Outcome is the result of one evaluation.
type Outcome struct {
	Decision         domain.Decision
	RejectionReason  string
	OverallRiskScore float64
	RiskLevel        domain.RiskLevel
	Factors          []string
}

// Engine evaluates stage results against configured weights and thresholds.
type Engine struct {
	cfg config.DecisionConfig
}

func NewEngine(cfg config.DecisionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate computes the weighted overall risk score and applies the decision
// policy in fixed order. Hard-fraud signals (tampering, deepfake, face
// mismatch) always override a good aggregate score.
func (e *Engine) Evaluate(in Input) Outcome {
	score := in.DocumentScore*e.cfg.DocumentWeight +
		in.FaceMatchScore*e.cfg.FaceMatchWeight +
		in.LivenessScore*e.cfg.LivenessWeight +
		(100-in.DeepfakeScore)*e.cfg.DeepfakeWeight

	out := Outcome{
		OverallRiskScore: score,
		Factors:          factors(in),
	}

	switch {
	case in.TamperingDetected:
		out.Decision = domain.DecisionRejected
		out.RejectionReason = ReasonDocumentTampering
		out.RiskLevel = domain.RiskCritical
	case in.DeepfakeScore >= e.cfg.DeepfakeRejectThreshold:
		out.Decision = domain.DecisionRejected
		out.RejectionReason = ReasonDeepfakeDetected
		out.RiskLevel = domain.RiskCritical
	case !in.FaceMatchPassed:
		out.Decision = domain.DecisionRejected
		out.RejectionReason = ReasonFaceMismatch
		out.RiskLevel = domain.RiskHigh
	case score >= e.cfg.ApproveThreshold:
		out.Decision = domain.DecisionApproved
		out.RiskLevel = domain.RiskLow
	case score >= e.cfg.ReviewThreshold:
		out.Decision = domain.DecisionManualReview
		out.RiskLevel = domain.RiskMedium
	default:
		out.Decision = domain.DecisionRejected
		out.RejectionReason = ReasonLowConfidence
		out.RiskLevel = domain.RiskHigh
	}

	return out
}

// factors names the stage signals that contributed most to the outcome.
// They are audit metadata, not decision inputs.
func factors(in Input) []string {
	var fs []string
	if in.TamperingDetected {
		fs = append(fs, "document tampering detected")
	}
	if !in.FaceMatchPassed {
		fs = append(fs, "face match failed")
	}
	for _, c := range []struct {
		name  string
		score float64
	}{
		{"document authenticity", in.DocumentScore},
		{"face similarity", in.FaceMatchScore},
		{"liveness", in.LivenessScore},
	} {
		if c.score < 50 {
			fs = append(fs, fmt.Sprintf("low %s score (%.0f)", c.name, c.score))
		}
	}
	if in.DeepfakeScore >= 25 {
		fs = append(fs, fmt.Sprintf("elevated deepfake score (%.0f)", in.DeepfakeScore))
	}
	return fs
}
