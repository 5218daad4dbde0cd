package domain

import "time"

// DocumentType enumerates the accepted identity document types.
type DocumentType string

const (
	DocPassport        DocumentType = "PASSPORT"
	DocNationalID      DocumentType = "NATIONAL_ID"
	DocDriversLicense  DocumentType = "DRIVERS_LICENSE"
	DocResidencePermit DocumentType = "RESIDENCE_PERMIT"
	DocVoterID         DocumentType = "VOTER_ID"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocPassport, DocNationalID, DocDriversLicense, DocResidencePermit, DocVoterID:
		return true
	}
	return false
}

// DocumentRecord is one uploaded identity document. Extracted fields are
// populated by the document analyzer after upload; a retry fully replaces
// the record rather than mutating it in place.
type DocumentRecord struct {
	DocumentID        string       `json:"id" dynamodbav:"document_id"`
	SessionID         string       `json:"session_id" dynamodbav:"session_id"`
	Type              DocumentType `json:"type" dynamodbav:"type"`
	FrontImageRef     string       `json:"front_image_ref" dynamodbav:"front_image_ref"`
	BackImageRef      string       `json:"back_image_ref,omitempty" dynamodbav:"back_image_ref,omitempty"`
	FullName          string       `json:"full_name,omitempty" dynamodbav:"full_name,omitempty"`
	DateOfBirth       string       `json:"date_of_birth,omitempty" dynamodbav:"date_of_birth,omitempty"`
	DocumentNumber    string       `json:"document_number,omitempty" dynamodbav:"document_number,omitempty"`
	ExpiryDate        string       `json:"expiry_date,omitempty" dynamodbav:"expiry_date,omitempty"`
	IssuingCountry    string       `json:"issuing_country,omitempty" dynamodbav:"issuing_country,omitempty"`
	IsAuthentic       *bool        `json:"is_authentic,omitempty" dynamodbav:"is_authentic,omitempty"`
	TamperingDetected bool         `json:"tampering_detected" dynamodbav:"tampering_detected"`
	ConfidenceScore   *float64     `json:"confidence_score,omitempty" dynamodbav:"confidence_score,omitempty"`
	FrontImageURL     string       `json:"front_image_url,omitempty" dynamodbav:"-"`
	BackImageURL      string       `json:"back_image_url,omitempty" dynamodbav:"-"`
	UploadedAt        time.Time    `json:"uploaded" dynamodbav:"uploaded_at"`
	ProcessedAt       *time.Time   `json:"processed_at,omitempty" dynamodbav:"processed_at,omitempty"`
}
