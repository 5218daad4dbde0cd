package domain

import "time"

// VerificationType identifies which collaborator produced a StageResult.
type VerificationType string

const (
	VerifyDocument  VerificationType = "DOCUMENT"
	VerifyFaceMatch VerificationType = "FACE_MATCH"
	VerifyLiveness  VerificationType = "LIVENESS"
	VerifyDeepfake  VerificationType = "DEEPFAKE"
)

// StageResult is one collaborator invocation outcome. Results are append-only:
// a retried stage produces a new StageResult and the orchestrator reads the
// latest per type, so the audit trail always explains a decision.
type StageResult struct {
	ResultID         string                 `json:"id" dynamodbav:"result_id"`
	SessionID        string                 `json:"session_id" dynamodbav:"session_id"`
	Type             VerificationType       `json:"verification_type" dynamodbav:"verification_type"`
	Score            float64                `json:"score" dynamodbav:"score"`
	IsPassed         bool                   `json:"is_passed" dynamodbav:"is_passed"`
	Confidence       *float64               `json:"confidence,omitempty" dynamodbav:"confidence,omitempty"`
	Details          map[string]interface{} `json:"details,omitempty" dynamodbav:"details,omitempty"`
	ModelVersion     string                 `json:"model_version,omitempty" dynamodbav:"model_version,omitempty"`
	ProcessedAt      time.Time              `json:"processed_at" dynamodbav:"processed_at"`
	ProcessingTimeMs int64                  `json:"processing_time_ms" dynamodbav:"processing_time_ms"`
}

// LatestResultPerType reduces an append-only result list to the most recent
// result for each verification type, by ProcessedAt.
func LatestResultPerType(results []StageResult) map[VerificationType]StageResult {
	latest := make(map[VerificationType]StageResult)
	for _, r := range results {
		if cur, ok := latest[r.Type]; !ok || r.ProcessedAt.After(cur.ProcessedAt) {
			latest[r.Type] = r
		}
	}
	return latest
}
