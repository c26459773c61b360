package cert

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dedup finding statuses
const (
	DedupUnique        = "unique"
	DedupDuplicate     = "duplicate"
	DedupSuspectedCopy = "suspected_copy"
	// DedupUnavailable records that the detection service could not be
	// reached. The pipeline fails open on it, but the finding keeps the
	// outage visible instead of burying it in error handling.
	DedupUnavailable = "unavailable"
)

// DedupFinding is the outcome of one duplicate-detection call. Findings are
// never mutated, only superseded by a newer row; consumers read the most
// recent one per exam result.
type DedupFinding struct {
	gorm.Model
	UserID       uint `json:"user_id" gorm:"index;not null"`
	CourseID     uint `json:"course_id" gorm:"index;not null"`
	ExamResultID uint `json:"exam_result_id" gorm:"index;not null"`

	PreviewFingerprint string         `json:"preview_fingerprint" gorm:"index"`
	Status             string         `json:"status"` // unique, duplicate, suspected_copy, unavailable
	SimilarityScore    float64        `json:"similarity_score"`
	Candidates         datatypes.JSON `json:"candidates"`
	CheckedAt          time.Time      `json:"checked_at"`
}
