package services

import (
	"certmint/models"
	certModels "certmint/models/cert"
	courseModels "certmint/models/course"
	examModels "certmint/models/exam"

	"gorm.io/gorm"
)

// Eligibility gathers every fact both issuance paths need about one exam
// result. The single-item pipeline and the batch driver interpret the same
// struct, so their eligibility rules cannot drift apart.
type Eligibility struct {
	Result  examModels.ExamResult
	User    models.User
	Session examModels.ExamSession
	Course  courseModels.Course

	// Existing is the live certificate if one was already issued
	Existing *certModels.Certificate
	// Finding is the most recent dedup finding, if any
	Finding *certModels.DedupFinding

	// Reason is empty when the result is fully eligible, otherwise one of
	// the skip codes (NOT_PASS, LOCKED is folded into CERT_ALREADY_ISSUED by
	// callers that hold a certificate, WALLET_MISSING, NO_AI_RESULT,
	// DEDUP_NOT_UNIQUE, CERT_ALREADY_ISSUED).
	Reason string
}

// EligibilityCheck loads an exam result with its learner, session and course
// and derives its certification eligibility
func EligibilityCheck(db *gorm.DB, examResultID uint) (*Eligibility, error) {
	e := &Eligibility{}

	if err := db.Where("id = ?", examResultID).First(&e.Result).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pipelineErrf(CodeNotFound, "exam result %d not found", examResultID)
		}
		return nil, err
	}
	if err := db.Where("id = ? AND is_deleted = ?", e.Result.UserID, false).First(&e.User).Error; err != nil {
		return nil, pipelineErrf(CodeNotFound, "learner %d not found", e.Result.UserID)
	}
	if err := db.Where("id = ?", e.Result.ExamSessionID).First(&e.Session).Error; err != nil {
		return nil, pipelineErrf(CodeNotFound, "exam session %d not found", e.Result.ExamSessionID)
	}
	if err := db.Where("id = ?", e.Session.CourseID).First(&e.Course).Error; err != nil {
		return nil, pipelineErrf(CodeNotFound, "course %d not found", e.Session.CourseID)
	}

	var existing certModels.Certificate
	err := db.Where("exam_result_id = ? AND revoked = ? AND is_deleted = ?", e.Result.ID, false, false).
		First(&existing).Error
	if err == nil {
		e.Existing = &existing
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var finding certModels.DedupFinding
	err = db.Where("exam_result_id = ?", e.Result.ID).Order("checked_at desc").First(&finding).Error
	if err == nil {
		e.Finding = &finding
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	e.Reason = e.deriveReason()
	return e, nil
}

func (e *Eligibility) deriveReason() string {
	if e.Result.Status != examModels.StatusPass {
		return CodeNotPass
	}
	if e.Existing != nil {
		return CodeCertAlreadyIssued
	}
	if e.Result.Locked {
		// Locked without a live certificate happens when the only
		// certificate was revoked; the result stays consumed.
		return CodeCertAlreadyIssued
	}
	if e.User.WalletAddress == "" || !e.User.IsWalletVerified {
		return CodeWalletMissing
	}
	if e.Finding == nil {
		return CodeNoAIResult
	}
	if e.Finding.Status != certModels.DedupUnique {
		return CodeDedupNotUnique
	}
	return ""
}

// EligibleForIssue reports whether the single-item pipeline may start. The
// direct path runs its own fresh dedup check, so a missing or stale finding
// does not block it the way it blocks the batch driver.
func (e *Eligibility) EligibleForIssue() bool {
	switch e.Reason {
	case "", CodeNoAIResult, CodeDedupNotUnique:
		return true
	}
	return false
}
