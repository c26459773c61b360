package cert

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions written by the pipeline and revocation service
const (
	ActionRenderPreview      = "CERT_RENDER_PREVIEW"
	ActionDedupCheck         = "AI_DEDUP_CHECK"
	ActionDedupUnavailable   = "AI_UNAVAILABLE"
	ActionDedupBlocked       = "AI_DEDUP_BLOCKED"
	ActionDedupOverride      = "AI_DEDUP_OVERRIDE"
	ActionCertificateIssued  = "CERTIFICATE_ISSUED"
	ActionCertificateRevoked = "CERTIFICATE_REVOKED"
	ActionReconcileAlert     = "RECONCILE_ALERT"
)

// AuditEntry is the append-only record of every state-changing decision.
// Blockchain and AI-service calls are non-transactional with the local
// database, so this trail is the durable account of what happened and why.
// Entries are written once and never updated.
type AuditEntry struct {
	gorm.Model
	ActorID  *uint          `json:"actor_id" gorm:"index"`
	Action   string         `json:"action" gorm:"index;not null"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id" gorm:"index"`
	Payload  datatypes.JSON `json:"payload"`
}
