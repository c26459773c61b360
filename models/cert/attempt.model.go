package cert

import "gorm.io/gorm"

// Issue attempt steps, in saga order
const (
	StepClaimed   = "claimed"
	StepRendered  = "rendered"
	StepStored    = "stored"
	StepMinted    = "minted"
	StepPersisted = "persisted"
	StepFailed    = "failed"
)

// IssueAttempt records the furthest completed step of one issuance run.
// The mint is externally irreversible, so a run that minted but failed to
// persist must never be replayed from the top: the attempt row keeps the
// mint result and NeedsReconciliation flags it for the operator until the
// certificate row exists.
type IssueAttempt struct {
	gorm.Model
	AttemptID    string `json:"attempt_id" gorm:"unique;not null"`
	ExamResultID uint   `json:"exam_result_id" gorm:"index;not null"`

	Step            string `json:"step" gorm:"default:'claimed'"`
	CertificateCode string `json:"certificate_code"`
	DocHash         string `json:"doc_hash"`
	EvidenceCid     string `json:"evidence_cid"`
	MetadataCid     string `json:"metadata_cid"`
	TokenURI        string `json:"token_uri"`
	MintTxHash      string `json:"mint_tx_hash"`
	TokenID         string `json:"token_id"`
	FailureCode     string `json:"failure_code" gorm:"default:''"`

	NeedsReconciliation bool `json:"needs_reconciliation" gorm:"default:false;index"`
	Reconciled          bool `json:"reconciled" gorm:"default:false"`
}
