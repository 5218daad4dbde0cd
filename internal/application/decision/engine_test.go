package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/domain"
)

func defaultCfg() config.DecisionConfig {
	return config.DecisionConfig{
		DocumentWeight:          0.50,
		FaceMatchWeight:         0.30,
		LivenessWeight:          0.15,
		DeepfakeWeight:          0.05,
		ApproveThreshold:        70,
		ReviewThreshold:         40,
		DeepfakeRejectThreshold: 50,
	}
}

func cleanInput() Input {
	return Input{
		DocumentScore:   90,
		FaceMatchScore:  90,
		LivenessScore:   90,
		DeepfakeScore:   5,
		FaceMatchPassed: true,
	}
}

func TestEvaluate_CleanSessionApproved(t *testing.T) {
	out := NewEngine(defaultCfg()).Evaluate(cleanInput())

	// 90*0.5 + 90*0.3 + 90*0.15 + 95*0.05
	assert.InDelta(t, 85.75, out.OverallRiskScore, 1e-9)
	assert.Equal(t, domain.DecisionApproved, out.Decision)
	assert.Equal(t, domain.RiskLow, out.RiskLevel)
	assert.Empty(t, out.RejectionReason)
}

func TestEvaluate_TamperingOverridesGoodScores(t *testing.T) {
	in := cleanInput()
	in.TamperingDetected = true

	out := NewEngine(defaultCfg()).Evaluate(in)
	assert.Equal(t, domain.DecisionRejected, out.Decision)
	assert.Equal(t, ReasonDocumentTampering, out.RejectionReason)
	assert.Equal(t, domain.RiskCritical, out.RiskLevel)
}

func TestEvaluate_DeepfakeAtThresholdRejects(t *testing.T) {
	in := cleanInput()
	in.DeepfakeScore = 50

	out := NewEngine(defaultCfg()).Evaluate(in)
	assert.Equal(t, domain.DecisionRejected, out.Decision)
	assert.Equal(t, ReasonDeepfakeDetected, out.RejectionReason)
}

func TestEvaluate_FaceMismatchRejects(t *testing.T) {
	in := cleanInput()
	in.FaceMatchPassed = false

	out := NewEngine(defaultCfg()).Evaluate(in)
	assert.Equal(t, domain.DecisionRejected, out.Decision)
	assert.Equal(t, ReasonFaceMismatch, out.RejectionReason)
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	// Tampering beats deepfake beats face mismatch, regardless of scores.
	in := cleanInput()
	in.TamperingDetected = true
	in.DeepfakeScore = 99
	in.FaceMatchPassed = false

	out := NewEngine(defaultCfg()).Evaluate(in)
	assert.Equal(t, ReasonDocumentTampering, out.RejectionReason)

	in.TamperingDetected = false
	out = NewEngine(defaultCfg()).Evaluate(in)
	assert.Equal(t, ReasonDeepfakeDetected, out.RejectionReason)
}

func TestEvaluate_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		score    float64 // target overall score via document-only weighting
		decision domain.Decision
		reason   string
	}{
		{"exactly at approve threshold", 70, domain.DecisionApproved, ""},
		{"just below approve threshold", 69.99, domain.DecisionManualReview, ""},
		{"exactly at review threshold", 40, domain.DecisionManualReview, ""},
		{"just below review threshold", 39.99, domain.DecisionRejected, ReasonLowConfidence},
	}

	// Weight the document score at 1.0 so the overall score equals the input.
	cfg := defaultCfg()
	cfg.DocumentWeight = 1.0
	cfg.FaceMatchWeight = 0
	cfg.LivenessWeight = 0
	cfg.DeepfakeWeight = 0

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cleanInput()
			in.DocumentScore = tt.score
			out := NewEngine(cfg).Evaluate(in)
			assert.Equal(t, tt.decision, out.Decision)
			assert.Equal(t, tt.reason, out.RejectionReason)
		})
	}
}

func TestEvaluate_WeightsArePluggable(t *testing.T) {
	cfg := defaultCfg()
	cfg.DocumentWeight = 0.25
	cfg.FaceMatchWeight = 0.25
	cfg.LivenessWeight = 0.25
	cfg.DeepfakeWeight = 0.25

	in := Input{
		DocumentScore:   100,
		FaceMatchScore:  0,
		LivenessScore:   0,
		DeepfakeScore:   100,
		FaceMatchPassed: true,
	}
	// 100*0.25 + 0 + 0 + (100-100)*0.25; deepfake rule fires first though.
	out := NewEngine(cfg).Evaluate(in)
	assert.InDelta(t, 25, out.OverallRiskScore, 1e-9)
	assert.Equal(t, ReasonDeepfakeDetected, out.RejectionReason)
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := NewEngine(defaultCfg())
	first := e.Evaluate(cleanInput())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Evaluate(cleanInput()))
	}
}

func TestEvaluate_FactorsNameWeakSignals(t *testing.T) {
	in := cleanInput()
	in.LivenessScore = 30
	in.DeepfakeScore = 30

	out := NewEngine(defaultCfg()).Evaluate(in)
	assert.Contains(t, out.Factors, "low liveness score (30)")
	assert.Contains(t, out.Factors, "elevated deepfake score (30)")
}
