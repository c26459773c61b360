package controllers

// PreviewRequest is the validated body of POST /certificates/render-preview
type PreviewRequest struct {
	ExamResultID uint   `json:"examResultId"`
	IssueDate    string `json:"issue_date"`
}

// IssueRequest is the validated body of POST /certificates/issue-final
type IssueRequest struct {
	ExamResultID uint   `json:"examResultId"`
	IssueDate    string `json:"issue_date"`
}

// BatchRequest is the validated body of POST /certificates/issue-batch
type BatchRequest struct {
	SessionID uint `json:"sessionId"`
}

// DecisionRequest is the validated body of POST /exam-results/:id/decision
type DecisionRequest struct {
	ExamResultID uint   `json:"-"`
	Decision     string `json:"decision"` // ALLOW or BLOCK
	Note         string `json:"note"`
}

// RevokeRequest is the validated body of PATCH /certificates/:id/revoke
type RevokeRequest struct {
	CertificateID  uint   `json:"-"`
	Reason         string `json:"reason"`
	AttemptOnchain bool   `json:"attemptOnchain"`
}

// WriteOnchainRequest identifies the certificate whose on-chain revocation
// should be retried
type WriteOnchainRequest struct {
	CertificateID uint `json:"-"`
}
