package services

import (
	"errors"
	"log"
	"time"

	"certmint/clients"
	examModels "certmint/models/exam"
)

// MintedItem is one successful issuance within a batch
type MintedItem struct {
	ExamResultID uint   `json:"examResultId"`
	TokenID      string `json:"tokenId"`
	TxHash       string `json:"txHash"`
	EvidenceCid  string `json:"evidenceCid"`
	DocHash      string `json:"docHash"`
}

// SkippedItem is one exam result the batch could not certify
type SkippedItem struct {
	ExamResultID uint   `json:"examResultId"`
	Reason       string `json:"reason"`
}

// BatchResult is the full ledger of a batch run, returned to the caller for
// manual follow-up
type BatchResult struct {
	SessionID uint          `json:"sessionId"`
	Minted    []MintedItem  `json:"minted"`
	Skipped   []SkippedItem `json:"skipped"`
}

// IssueBatch certifies every eligible PASS result of an exam session.
// Items run strictly sequentially: the per-result claim makes concurrent
// runs safe, but sequential keeps external rate limits honest and the
// at-most-one reasoning simple. A single item's failure never aborts the
// batch.
func (p *Pipeline) IssueBatch(sessionID uint, actorID *uint) (*BatchResult, error) {
	var session examModels.ExamSession
	if err := p.DB.Where("id = ? AND is_deleted = ?", sessionID, false).First(&session).Error; err != nil {
		return nil, pipelineErrf(CodeNotFound, "exam session %d not found", sessionID)
	}

	var results []examModels.ExamResult
	if err := p.DB.Where("exam_session_id = ? AND status = ?", sessionID, examModels.StatusPass).
		Order("id asc").Find(&results).Error; err != nil {
		return nil, err
	}

	out := &BatchResult{SessionID: sessionID, Minted: []MintedItem{}, Skipped: []SkippedItem{}}
	issueDate := time.Now().Format("2006-01-02")

	for _, r := range results {
		e, err := EligibilityCheck(p.DB, r.ID)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedItem{ExamResultID: r.ID, Reason: ErrorCode(err)})
			continue
		}
		if e.Reason != "" {
			out.Skipped = append(out.Skipped, SkippedItem{ExamResultID: r.ID, Reason: e.Reason})
			continue
		}

		issue, err := p.Issue(r.ID, issueDate, actorID)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedItem{ExamResultID: r.ID, Reason: skipReason(err)})
			continue
		}
		if issue.RequiresDecision {
			out.Skipped = append(out.Skipped, SkippedItem{ExamResultID: r.ID, Reason: CodeDedupNotUnique})
			continue
		}
		if issue.Reused {
			out.Skipped = append(out.Skipped, SkippedItem{ExamResultID: r.ID, Reason: CodeCertAlreadyIssued})
			continue
		}

		out.Minted = append(out.Minted, MintedItem{
			ExamResultID: r.ID,
			TokenID:      issue.Certificate.TokenID,
			TxHash:       issue.Certificate.MintTxHash,
			EvidenceCid:  issue.Certificate.EvidenceCid,
			DocHash:      issue.Certificate.DocHash,
		})
	}

	log.Printf("[BATCH] Session %d: %d minted, %d skipped", sessionID, len(out.Minted), len(out.Skipped))
	return out, nil
}

// skipReason maps an issuance failure onto the batch skip taxonomy
func skipReason(err error) string {
	if errors.Is(err, clients.ErrMinterUnreachable) || errors.Is(err, clients.ErrDedupUnreachable) {
		return CodeNetworkError
	}
	if code := ErrorCode(err); code != CodeInternal {
		return code
	}
	return CodeNetworkError
}
