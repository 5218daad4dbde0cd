package domain

import "time"

// SessionStatus is the current state-machine state of a verification session.
type SessionStatus string

const (
	StatusCreated           SessionStatus = "CREATED"
	StatusDocumentSubmitted SessionStatus = "DOCUMENT_SUBMITTED"
	StatusDocumentVerified  SessionStatus = "DOCUMENT_VERIFIED"
	StatusSelfieSubmitted   SessionStatus = "SELFIE_SUBMITTED"
	StatusFaceVerified      SessionStatus = "FACE_VERIFIED"
	StatusRiskScored        SessionStatus = "RISK_SCORED"
	StatusApproved          SessionStatus = "APPROVED"
	StatusRejected          SessionStatus = "REJECTED"
	StatusManualReview      SessionStatus = "MANUAL_REVIEW"
)

// Decision is the outcome of a verification session. It stays PENDING until
// the decision engine has run, and is immutable once set to anything else.
type Decision string

const (
	DecisionPending      Decision = "PENDING"
	DecisionApproved     Decision = "APPROVED"
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
)

// RiskLevel is a coarse bucket derived from the overall risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// transitions lists every legal forward edge of the state machine.
// Sessions never move backwards; retries repeat the current state's work.
var transitions = map[SessionStatus][]SessionStatus{
	StatusCreated:           {StatusDocumentSubmitted},
	StatusDocumentSubmitted: {StatusDocumentVerified, StatusManualReview, StatusRejected},
	StatusDocumentVerified:  {StatusSelfieSubmitted, StatusRejected},
	StatusSelfieSubmitted:   {StatusFaceVerified, StatusManualReview, StatusRejected},
	StatusFaceVerified:      {StatusRiskScored, StatusApproved, StatusRejected, StatusManualReview},
	StatusRiskScored:        {StatusApproved, StatusRejected, StatusManualReview},
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusManualReview
}

// VerificationSession is the aggregate root of one identity-verification
// attempt. Score fields are pointers: nil means the corresponding stage has
// not completed yet. Version backs the optimistic concurrency check in the
// session store.
type VerificationSession struct {
	SessionID        string           `json:"id" dynamodbav:"session_id"`
	UserID           string           `json:"user_id" dynamodbav:"user_id"`
	Status           SessionStatus    `json:"status" dynamodbav:"status"`
	Decision         Decision         `json:"decision" dynamodbav:"decision"`
	DocumentScore    *float64         `json:"document_score,omitempty" dynamodbav:"document_score,omitempty"`
	FaceMatchScore   *float64         `json:"face_match_score,omitempty" dynamodbav:"face_match_score,omitempty"`
	LivenessScore    *float64         `json:"liveness_score,omitempty" dynamodbav:"liveness_score,omitempty"`
	DeepfakeScore    *float64         `json:"deepfake_score,omitempty" dynamodbav:"deepfake_score,omitempty"`
	OverallRiskScore *float64         `json:"overall_risk_score,omitempty" dynamodbav:"overall_risk_score,omitempty"`
	RiskLevel        RiskLevel        `json:"risk_level,omitempty" dynamodbav:"risk_level,omitempty"`
	RejectionReason  string           `json:"rejection_reason,omitempty" dynamodbav:"rejection_reason,omitempty"`
	ReviewNotes      string           `json:"review_notes,omitempty" dynamodbav:"review_notes,omitempty"`
	SelfieImageRef   string           `json:"selfie_image_ref,omitempty" dynamodbav:"selfie_image_ref,omitempty"`
	RetryCount       int              `json:"retry_count" dynamodbav:"retry_count"`
	Version          int64            `json:"-" dynamodbav:"version"`
	IPAddress        string           `json:"ip_address,omitempty" dynamodbav:"ip_address,omitempty"`
	UserAgent        string           `json:"user_agent,omitempty" dynamodbav:"user_agent,omitempty"`
	CreatedAt        time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time        `json:"updated" dynamodbav:"updated_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty" dynamodbav:"completed_at,omitempty"`
	Documents        []DocumentRecord `json:"documents,omitempty" dynamodbav:"-"`
	StageResults     []StageResult    `json:"stage_results,omitempty" dynamodbav:"-"`
}
