package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrValidation: bad input shape, size or type — the caller must resubmit.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState: the operation is not legal from the session's current
	// state. A caller bug, never retried.
	ErrInvalidState = errors.New("invalid state")
	// ErrCollaboratorUnavailable: a collaborator call failed transiently.
	// Retried up to the configured cap, then routed to manual review.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrUserCorrectable: the submitted media was unusable in a way the user
	// can fix. The session stays in its current state.
	ErrUserCorrectable = errors.New("user correctable")
	// ErrDecisionFinal: an attempt to mutate a session already in a terminal state.
	ErrDecisionFinal = errors.New("decision final")
)

// Correctable error codes surfaced to the caller with a remediation message.
const (
	CodeFaceNotDetected = "FACE_NOT_DETECTED"
	CodeMultipleFaces   = "MULTIPLE_FACES"
	CodeLowImageQuality = "LOW_IMAGE_QUALITY"
	CodeNoMatch         = "NO_MATCH"
)

// CorrectableError is a user-correctable collaborator failure. It unwraps to
// ErrUserCorrectable so services and handlers can branch with errors.Is.
type CorrectableError struct {
	Code        string
	Remediation string
}

func (e *CorrectableError) Error() string {
	return "user correctable: " + e.Code
}

func (e *CorrectableError) Unwrap() error { return ErrUserCorrectable }

// RemediationFor returns the user-facing remediation message for a
// correctable error code.
func RemediationFor(code string) string {
	switch code {
	case CodeFaceNotDetected:
		return "ensure your face is visible"
	case CodeMultipleFaces:
		return "ensure only one face is in frame"
	case CodeLowImageQuality:
		return "retake the photo in better lighting"
	case CodeNoMatch:
		return "retake the photo facing the camera directly"
	}
	return "please resubmit"
}
