package exam

import (
	"time"

	"gorm.io/gorm"
)

// Exam result statuses
const (
	StatusPending = "PENDING"
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
)

// ExamSession is one sitting of an exam for a course
type ExamSession struct {
	gorm.Model
	CourseID  uint      `json:"course_id" gorm:"index;not null"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	IsDeleted bool      `gorm:"default:false"`
}

// ExamResult is a learner's attempt at an exam session. Once Locked is set
// the score and status are immutable and no further certificate may be
// issued against this row. Rows are never deleted; they anchor the audit
// history of every issuance.
type ExamResult struct {
	gorm.Model
	ExamSessionID uint     `json:"exam_session_id" gorm:"index;not null"`
	UserID        uint     `json:"user_id" gorm:"index;not null"`
	Score         *float64 `json:"score"`
	Status        string   `json:"status" gorm:"default:'PENDING'"` // PENDING, PASS, FAIL
	Locked        bool     `json:"locked" gorm:"default:false"`
	// InProgress is the issuance claim marker. It is flipped with a
	// conditional update before the first saga step so two nodes can never
	// run the pipeline for the same result at once.
	InProgress bool `json:"-" gorm:"default:false"`
}
