package cert

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is the authoritative issuance record. At most one
// non-revoked certificate may exist per exam result; that invariant is
// backed by a partial unique index created in database.ConnectDb, not just
// by the application-level checks. Certificates are never hard-deleted:
// revocation is a status flip so history is preserved.
type Certificate struct {
	gorm.Model
	UserID       uint `json:"user_id" gorm:"index;not null"`
	CourseID     uint `json:"course_id" gorm:"index;not null"`
	ExamResultID uint `json:"exam_result_id" gorm:"index;not null"`

	CertificateCode string `json:"certificate_code" gorm:"unique"`
	TokenID         string `json:"token_id" gorm:"index"`
	TokenURI        string `json:"token_uri"`
	EvidenceCid     string `json:"evidence_cid"` // content id of the pinned PDF
	MetadataCid     string `json:"metadata_cid"` // content id of the pinned metadata.json
	// DocHash fingerprints the final rendered artifact (code and verify URL
	// embedded). It intentionally differs from the preview fingerprint kept
	// on the dedup finding, which is computed before the code exists.
	DocHash    string    `json:"doc_hash" gorm:"index"`
	MintTxHash string    `json:"mint_tx_hash"`
	IssuedAt   time.Time `json:"issued_at"`

	Revoked          bool       `json:"revoked" gorm:"default:false;index"`
	RevokedAt        *time.Time `json:"revoked_at"`
	RevocationReason string     `json:"revocation_reason" gorm:"default:''"`
	RevocationTxHash *string    `json:"revocation_tx_hash"`
	RevocationError  *string    `json:"revocation_error"`
	// OnchainRevokePending marks certificates revoked locally whose on-chain
	// revoke has not yet succeeded; the reconcile scheduler retries them.
	OnchainRevokePending bool `json:"onchain_revoke_pending" gorm:"default:false"`

	IsDeleted bool `gorm:"default:false"`
}
