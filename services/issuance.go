package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"certmint/clients"
	certModels "certmint/models/cert"
	examModels "certmint/models/exam"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Renderer produces certificate PDFs from structured data
type Renderer interface {
	Render(data clients.CertificateData, mode string) ([]byte, error)
}

// DedupChecker consults the duplicate-detection service
type DedupChecker interface {
	Check(fingerprint, textPreview string) (clients.DedupOutcome, error)
	Decision(checkID, decision, decidedBy, note string) error
}

// EvidenceStore persists artifacts content-addressed
type EvidenceStore interface {
	Upload(content []byte, name string) (string, error)
}

// Minter submits mint and revoke transactions
type Minter interface {
	Mint(contract, to, tokenURI string) (clients.MintReceipt, error)
	Revoke(contract, tokenID string) (string, error)
}

// AlertSender delivers operator-visible reconciliation alerts
type AlertSender interface {
	SendReconciliationAlert(subject, body string) error
}

// PipelineOptions carries issuance settings that would otherwise be read
// from the global config, kept explicit so tests can set them directly
type PipelineOptions struct {
	ContractAddress string
	ChainID         int
	VerifyBaseURL   string
	IssuerName      string
}

// Pipeline drives the issuance saga for a single exam result:
// render preview, fingerprint, dedup check, optional admin decision, final
// render, evidence upload, mint, persist and lock.
type Pipeline struct {
	DB       *gorm.DB
	Renderer Renderer
	Dedup    DedupChecker
	Evidence EvidenceStore
	Minter   Minter
	Alerts   AlertSender
	Opts     PipelineOptions
}

// NewPipeline wires the pipeline with its collaborators
func NewPipeline(db *gorm.DB, renderer Renderer, dedup DedupChecker, evidence EvidenceStore, minter Minter, alerts AlertSender, opts PipelineOptions) *Pipeline {
	return &Pipeline{
		DB:       db,
		Renderer: renderer,
		Dedup:    dedup,
		Evidence: evidence,
		Minter:   minter,
		Alerts:   alerts,
		Opts:     opts,
	}
}

// PreviewResult is the outcome of a preview render. Nothing is persisted by
// the render itself, so repeated previews of the same logical content stay
// comparable by fingerprint.
type PreviewResult struct {
	PDF                []byte `json:"-"`
	PreviewFingerprint string `json:"preview_fingerprint"`
	CertificateCode    string `json:"certificate_code"`
	TextPreview        string `json:"-"`
}

// CheckOutcome is the state-machine result of one dedup check
type CheckOutcome struct {
	Status           string                   `json:"status"`
	Proceed          bool                     `json:"proceed"`
	RequiresDecision bool                     `json:"requires_decision"`
	DecisionType     string                   `json:"decision_type,omitempty"` // EXACT or SIMILAR
	Candidates       []clients.DedupCandidate `json:"candidates,omitempty"`
	Finding          *certModels.DedupFinding `json:"finding,omitempty"`
}

// IssueResult is the terminal outcome of an issuance run
type IssueResult struct {
	Reused           bool                     `json:"reused"`
	RequiresDecision bool                     `json:"require_admin_decision"`
	DecisionType     string                   `json:"type,omitempty"`
	Candidates       []clients.DedupCandidate `json:"candidates,omitempty"`
	Certificate      *certModels.Certificate  `json:"certificate,omitempty"`
	ChainID          int                      `json:"chain_id,omitempty"`
	VerifyURL        string                   `json:"verify_url,omitempty"`
}

// NewCertificateCode generates a fresh human-readable certificate code
func NewCertificateCode() string {
	raw := uuid.New()
	return fmt.Sprintf("CERT-%X", raw[:6])
}

// RenderPreview renders the certificate without code or verification URL
// and fingerprints the bytes. Pure preparation: the only side effect is the
// audit entry recording that a preview happened.
func (p *Pipeline) RenderPreview(examResultID uint, issueDate string, actorID *uint) (*PreviewResult, error) {
	e, err := EligibilityCheck(p.DB, examResultID)
	if err != nil {
		return nil, err
	}
	if e.Result.Status != examModels.StatusPass {
		return nil, pipelineErrf(CodeNotPass, "exam result %d is %s", examResultID, e.Result.Status)
	}
	if e.Result.Locked {
		return nil, pipelineErrf(CodeLocked, "exam result %d is locked", examResultID)
	}
	if err := p.validateScore(e); err != nil {
		return nil, err
	}

	data := p.certificateData(e, issueDate, "", "")
	pdf, err := p.Renderer.Render(data, clients.RenderModePreview)
	if err != nil {
		return nil, pipelineErr(CodeRenderFailed, err)
	}

	fingerprint := Fingerprint(pdf)
	LogAudit(p.DB, actorID, certModels.ActionRenderPreview, "ExamResult", itoa(e.Result.ID), map[string]interface{}{
		"examResultId": e.Result.ID,
		"userId":       e.Result.UserID,
		"courseId":     e.Course.ID,
		"preIssueHash": fingerprint,
	})

	return &PreviewResult{
		PDF:                pdf,
		PreviewFingerprint: fingerprint,
		CertificateCode:    NewCertificateCode(),
		TextPreview:        p.textPreview(e),
	}, nil
}

// CheckDuplicate asks the detection service about a preview fingerprint and
// persists the finding. An unreachable service is recorded as an
// `unavailable` finding and mapped to proceed here, at the orchestration
// boundary: issuance is deliberately never blocked by an external outage.
func (p *Pipeline) CheckDuplicate(examResultID uint, previewFingerprint, textPreview string, actorID *uint) (*CheckOutcome, error) {
	e, err := EligibilityCheck(p.DB, examResultID)
	if err != nil {
		return nil, err
	}
	if e.Result.Status != examModels.StatusPass {
		return nil, pipelineErrf(CodeNotPass, "exam result %d is %s", examResultID, e.Result.Status)
	}
	if e.Result.Locked {
		return nil, pipelineErrf(CodeLocked, "exam result %d is locked", examResultID)
	}

	outcome, err := p.Dedup.Check(previewFingerprint, textPreview)
	if err != nil {
		if !errors.Is(err, clients.ErrDedupUnreachable) {
			return nil, pipelineErr(CodeInternal, err)
		}
		// Fail open: availability over safety, by explicit policy
		log.Printf("[PIPELINE] Dedup service unreachable for exam result %d: %v", examResultID, err)
		LogAudit(p.DB, actorID, certModels.ActionDedupUnavailable, "ExamResult", itoa(e.Result.ID), map[string]interface{}{
			"error": err.Error(),
		})
		finding := p.saveFinding(e, previewFingerprint, clients.DedupOutcome{Status: certModels.DedupUnavailable})
		return &CheckOutcome{Status: certModels.DedupUnavailable, Proceed: true, Finding: finding}, nil
	}

	finding := p.saveFinding(e, previewFingerprint, outcome)
	LogAudit(p.DB, actorID, certModels.ActionDedupCheck, "ExamResult", itoa(e.Result.ID), map[string]interface{}{
		"preIssueHash":    previewFingerprint,
		"status":          outcome.Status,
		"similarityScore": outcome.SimilarityScore,
		"candidates":      len(outcome.Candidates),
	})

	result := &CheckOutcome{Status: outcome.Status, Candidates: outcome.Candidates, Finding: finding}
	switch outcome.Status {
	case certModels.DedupUnique:
		result.Proceed = true
	case certModels.DedupDuplicate:
		result.RequiresDecision = true
		result.DecisionType = "EXACT"
	case certModels.DedupSuspectedCopy:
		result.RequiresDecision = true
		result.DecisionType = "SIMILAR"
	}
	return result, nil
}

// Issue runs the whole pipeline for one exam result. It either completes
// the issuance, returns the existing certificate for an already-certified
// result, or halts with a requires-admin-decision outcome.
func (p *Pipeline) Issue(examResultID uint, issueDate string, actorID *uint) (*IssueResult, error) {
	e, err := EligibilityCheck(p.DB, examResultID)
	if err != nil {
		return nil, err
	}
	if e.Result.Status != examModels.StatusPass {
		return nil, pipelineErrf(CodeNotPass, "exam result %d is %s", examResultID, e.Result.Status)
	}
	if e.Existing != nil {
		return &IssueResult{
			Reused:      true,
			Certificate: e.Existing,
			ChainID:     p.Opts.ChainID,
			VerifyURL:   p.Opts.VerifyBaseURL + e.Existing.CertificateCode,
		}, nil
	}
	if e.Result.Locked {
		return nil, pipelineErrf(CodeLocked, "exam result %d is locked", examResultID)
	}
	if e.User.WalletAddress == "" || !e.User.IsWalletVerified {
		return nil, pipelineErrf(CodeWalletMissing, "learner %d has no verified wallet", e.User.ID)
	}

	preview, err := p.RenderPreview(examResultID, issueDate, actorID)
	if err != nil {
		return nil, err
	}

	check, err := p.CheckDuplicate(examResultID, preview.PreviewFingerprint, preview.TextPreview, actorID)
	if err != nil {
		return nil, err
	}
	if check.RequiresDecision {
		return &IssueResult{
			RequiresDecision: true,
			DecisionType:     check.DecisionType,
			Candidates:       check.Candidates,
		}, nil
	}

	return p.finalize(e, preview, issueDate, actorID)
}

// DecideResult is the outcome of an admin adjudication
type DecideResult struct {
	Blocked bool         `json:"blocked"`
	Issue   *IssueResult `json:"issue,omitempty"`
}

// Decide resolves a pending duplicate/suspected_copy finding. ALLOW resumes
// the pipeline from the final render using the persisted preview data;
// BLOCK refuses issuance and leaves the exam result unlocked so it can be
// revisited after investigation.
func (p *Pipeline) Decide(examResultID uint, decision, note string, actorID *uint, actorName string) (*DecideResult, error) {
	e, err := EligibilityCheck(p.DB, examResultID)
	if err != nil {
		return nil, err
	}
	if e.Result.Status != examModels.StatusPass {
		return nil, pipelineErrf(CodeNotPass, "exam result %d is %s", examResultID, e.Result.Status)
	}
	if e.Result.Locked {
		return nil, pipelineErrf(CodeLocked, "exam result %d is locked", examResultID)
	}
	if e.Existing != nil {
		return nil, pipelineErrf(CodeCertAlreadyIssued, "certificate already issued for exam result %d", examResultID)
	}
	if e.Finding == nil || (e.Finding.Status != certModels.DedupDuplicate && e.Finding.Status != certModels.DedupSuspectedCopy) {
		return nil, pipelineErrf(CodeDecisionNotPending, "no pending dedup finding for exam result %d", examResultID)
	}

	// Best effort: the detection service learns from verdicts, but its
	// availability must not gate the adjudication itself.
	if err := p.Dedup.Decision(e.Finding.PreviewFingerprint, decision, actorName, note); err != nil {
		log.Printf("[PIPELINE] Failed to record decision with dedup service: %v", err)
	}

	if decision == "BLOCK" {
		LogAudit(p.DB, actorID, certModels.ActionDedupBlocked, "ExamResult", itoa(e.Result.ID), map[string]interface{}{
			"decision":     decision,
			"note":         note,
			"preIssueHash": e.Finding.PreviewFingerprint,
		})
		return &DecideResult{Blocked: true}, nil
	}

	// The wallet may have been cleared or unverified since the check ran
	if e.User.WalletAddress == "" || !e.User.IsWalletVerified {
		return nil, pipelineErrf(CodeWalletMissing, "learner %d has no verified wallet", e.User.ID)
	}

	LogAudit(p.DB, actorID, certModels.ActionDedupOverride, "ExamResult", itoa(e.Result.ID), map[string]interface{}{
		"decision":     decision,
		"note":         note,
		"preIssueHash": e.Finding.PreviewFingerprint,
	})

	preview := &PreviewResult{
		PreviewFingerprint: e.Finding.PreviewFingerprint,
		CertificateCode:    NewCertificateCode(),
	}
	issue, err := p.finalize(e, preview, time.Now().Format("2006-01-02"), actorID)
	if err != nil {
		return nil, err
	}
	return &DecideResult{Issue: issue}, nil
}

// finalize runs the irreversible tail of the saga: final render, evidence
// upload, mint, persist and lock. Each step updates the attempt row before
// the next starts so a crash can be reconciled from the furthest completed
// step. After the mint has been submitted nothing is rolled back.
func (p *Pipeline) finalize(e *Eligibility, preview *PreviewResult, issueDate string, actorID *uint) (*IssueResult, error) {
	if issueDate == "" {
		issueDate = time.Now().Format("2006-01-02")
	}

	if err := p.claim(e.Result.ID); err != nil {
		return nil, err
	}
	locked := false
	defer func() {
		if !locked {
			p.release(e.Result.ID)
		}
	}()

	// An earlier run may have minted and then failed to persist. The token
	// already exists on chain, so a retry resumes at the persist step with
	// the stored receipt instead of submitting a second mint.
	var stranded certModels.IssueAttempt
	err := p.DB.Where("exam_result_id = ? AND step = ? AND needs_reconciliation = ? AND reconciled = ?",
		e.Result.ID, certModels.StepMinted, true, false).
		Order("id desc").First(&stranded).Error
	if err == nil {
		result, rerr := p.persistStranded(e, &stranded, actorID)
		if rerr == nil {
			locked = true
		}
		return result, rerr
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pipelineErr(CodeInternal, err)
	}

	attempt := certModels.IssueAttempt{
		AttemptID:       uuid.NewString(),
		ExamResultID:    e.Result.ID,
		Step:            certModels.StepClaimed,
		CertificateCode: preview.CertificateCode,
	}
	if err := p.DB.Create(&attempt).Error; err != nil {
		return nil, pipelineErr(CodeInternal, err)
	}

	// Step 1: final render, now embedding the code and verification URL.
	// The resulting hash is intentionally distinct from the preview
	// fingerprint kept on the dedup finding.
	verifyURL := p.Opts.VerifyBaseURL + preview.CertificateCode
	data := p.certificateData(e, issueDate, preview.CertificateCode, verifyURL)
	pdf, err := p.Renderer.Render(data, clients.RenderModeFinal)
	if err != nil {
		p.failAttempt(&attempt, CodeRenderFailed)
		return nil, pipelineErr(CodeRenderFailed, err)
	}
	docHash := Fingerprint(pdf)
	p.advanceAttempt(&attempt, certModels.StepRendered, map[string]interface{}{"doc_hash": docHash})

	// Step 2: evidence upload, PDF then metadata. Nothing persisted or
	// minted yet, so a failure here aborts cleanly.
	evidenceCid, err := p.Evidence.Upload(pdf, "certificate.pdf")
	if err != nil {
		p.failAttempt(&attempt, CodeEvidenceStoreFailed)
		return nil, pipelineErr(CodeEvidenceStoreFailed, err)
	}

	metadata := map[string]interface{}{
		"name":        fmt.Sprintf("%s Certificate", e.User.Name),
		"description": "Course Completion Certificate",
		"file":        fmt.Sprintf("ipfs://%s/certificate.pdf", evidenceCid),
		"learner":     e.User.Name,
		"course":      e.Course.Title,
		"score":       e.Result.Score,
		"issue_date":  issueDate,
		"verify_url":  verifyURL,
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		p.failAttempt(&attempt, CodeEvidenceStoreFailed)
		return nil, pipelineErr(CodeEvidenceStoreFailed, err)
	}
	metadataCid, err := p.Evidence.Upload(metadataBytes, "metadata.json")
	if err != nil {
		p.failAttempt(&attempt, CodeEvidenceStoreFailed)
		return nil, pipelineErr(CodeEvidenceStoreFailed, err)
	}
	tokenURI := "ipfs://" + metadataCid
	p.advanceAttempt(&attempt, certModels.StepStored, map[string]interface{}{
		"evidence_cid": evidenceCid,
		"metadata_cid": metadataCid,
		"token_uri":    tokenURI,
	})

	// Step 3: mint. A failure aborts with no certificate row, preserving
	// the at-most-one invariant; a success is externally irreversible.
	receipt, err := p.Minter.Mint(p.Opts.ContractAddress, e.User.WalletAddress, tokenURI)
	if err != nil {
		p.failAttempt(&attempt, CodeMintFailed)
		return nil, pipelineErr(CodeMintFailed, err)
	}
	p.advanceAttempt(&attempt, certModels.StepMinted, map[string]interface{}{
		"mint_tx_hash": receipt.TxHash,
		"token_id":     receipt.TokenID,
	})

	// Step 4: persist the certificate and lock the exam result in one
	// transaction. If this fails the mint has already happened, so the
	// attempt is flagged for reconciliation instead of being retried.
	certificate := certModels.Certificate{
		UserID:          e.User.ID,
		CourseID:        e.Course.ID,
		ExamResultID:    e.Result.ID,
		CertificateCode: preview.CertificateCode,
		TokenID:         receipt.TokenID,
		TokenURI:        tokenURI,
		EvidenceCid:     evidenceCid,
		MetadataCid:     metadataCid,
		DocHash:         docHash,
		MintTxHash:      receipt.TxHash,
		IssuedAt:        time.Now(),
	}
	err = p.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&certificate).Error; err != nil {
			return err
		}
		return tx.Model(&examModels.ExamResult{}).Where("id = ?", e.Result.ID).
			Updates(map[string]interface{}{"locked": true, "in_progress": false}).Error
	})
	if err != nil {
		p.reconcileAlert(&attempt, e, receipt, err)
		return nil, pipelineErr(CodePersistAfterMint, err)
	}
	locked = true
	p.advanceAttempt(&attempt, certModels.StepPersisted, nil)

	LogAudit(p.DB, actorID, certModels.ActionCertificateIssued, "Certificate", itoa(certificate.ID), map[string]interface{}{
		"examResultId": e.Result.ID,
		"tokenId":      receipt.TokenID,
		"mintTxHash":   receipt.TxHash,
		"docHash":      docHash,
	})

	return &IssueResult{
		Certificate: &certificate,
		ChainID:     p.Opts.ChainID,
		VerifyURL:   verifyURL,
	}, nil
}

// persistStranded finishes an issuance whose mint succeeded but whose
// certificate row never landed. Everything irreversible already happened;
// only the local persist and lock are replayed, from the attempt's stored
// receipt.
func (p *Pipeline) persistStranded(e *Eligibility, attempt *certModels.IssueAttempt, actorID *uint) (*IssueResult, error) {
	certificate := certModels.Certificate{
		UserID:          e.User.ID,
		CourseID:        e.Course.ID,
		ExamResultID:    e.Result.ID,
		CertificateCode: attempt.CertificateCode,
		TokenID:         attempt.TokenID,
		TokenURI:        attempt.TokenURI,
		EvidenceCid:     attempt.EvidenceCid,
		MetadataCid:     attempt.MetadataCid,
		DocHash:         attempt.DocHash,
		MintTxHash:      attempt.MintTxHash,
		IssuedAt:        time.Now(),
	}
	err := p.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&certificate).Error; err != nil {
			return err
		}
		return tx.Model(&examModels.ExamResult{}).Where("id = ?", e.Result.ID).
			Updates(map[string]interface{}{"locked": true, "in_progress": false}).Error
	})
	if err != nil {
		// Still stranded; the attempt stays flagged for the operator
		return nil, pipelineErr(CodePersistAfterMint, err)
	}

	if err := p.DB.Model(attempt).Updates(map[string]interface{}{
		"step":                 certModels.StepPersisted,
		"failure_code":         "",
		"needs_reconciliation": false,
		"reconciled":           true,
	}).Error; err != nil {
		log.Printf("[PIPELINE] Failed to mark attempt %s reconciled: %v", attempt.AttemptID, err)
	}

	LogAudit(p.DB, actorID, certModels.ActionCertificateIssued, "Certificate", itoa(certificate.ID), map[string]interface{}{
		"examResultId": e.Result.ID,
		"tokenId":      certificate.TokenID,
		"mintTxHash":   certificate.MintTxHash,
		"docHash":      certificate.DocHash,
		"reconciled":   true,
		"attemptId":    attempt.AttemptID,
	})

	return &IssueResult{
		Certificate: &certificate,
		ChainID:     p.Opts.ChainID,
		VerifyURL:   p.Opts.VerifyBaseURL + certificate.CertificateCode,
	}, nil
}

// claim marks the exam result as having an in-flight issuance run. The
// conditional update is the per-id guard: of two racing nodes only one sees
// a row to flip.
func (p *Pipeline) claim(examResultID uint) error {
	res := p.DB.Model(&examModels.ExamResult{}).
		Where("id = ? AND in_progress = ? AND locked = ?", examResultID, false, false).
		Update("in_progress", true)
	if res.Error != nil {
		return pipelineErr(CodeInternal, res.Error)
	}
	if res.RowsAffected == 0 {
		var r examModels.ExamResult
		if err := p.DB.Where("id = ?", examResultID).First(&r).Error; err == nil && r.Locked {
			return pipelineErrf(CodeLocked, "exam result %d is locked", examResultID)
		}
		return pipelineErrf(CodeIssuanceInProgress, "issuance already running for exam result %d", examResultID)
	}
	return nil
}

func (p *Pipeline) release(examResultID uint) {
	if err := p.DB.Model(&examModels.ExamResult{}).Where("id = ?", examResultID).
		Update("in_progress", false).Error; err != nil {
		log.Printf("[PIPELINE] Failed to release claim on exam result %d: %v", examResultID, err)
	}
}

func (p *Pipeline) saveFinding(e *Eligibility, previewFingerprint string, outcome clients.DedupOutcome) *certModels.DedupFinding {
	candidates, err := json.Marshal(outcome.Candidates)
	if err != nil {
		candidates = []byte("[]")
	}
	finding := certModels.DedupFinding{
		UserID:             e.User.ID,
		CourseID:           e.Course.ID,
		ExamResultID:       e.Result.ID,
		PreviewFingerprint: previewFingerprint,
		Status:             outcome.Status,
		SimilarityScore:    outcome.SimilarityScore,
		Candidates:         datatypes.JSON(candidates),
		CheckedAt:          time.Now(),
	}
	if err := p.DB.Create(&finding).Error; err != nil {
		log.Printf("[PIPELINE] Failed to persist dedup finding for exam result %d: %v", e.Result.ID, err)
	}
	return &finding
}

func (p *Pipeline) advanceAttempt(attempt *certModels.IssueAttempt, step string, fields map[string]interface{}) {
	updates := map[string]interface{}{"step": step}
	for k, v := range fields {
		updates[k] = v
		switch k {
		case "doc_hash":
			attempt.DocHash = v.(string)
		case "evidence_cid":
			attempt.EvidenceCid = v.(string)
		case "metadata_cid":
			attempt.MetadataCid = v.(string)
		case "token_uri":
			attempt.TokenURI = v.(string)
		case "mint_tx_hash":
			attempt.MintTxHash = v.(string)
		case "token_id":
			attempt.TokenID = v.(string)
		}
	}
	attempt.Step = step
	if err := p.DB.Model(attempt).Updates(updates).Error; err != nil {
		log.Printf("[PIPELINE] Failed to advance attempt %s to %s: %v", attempt.AttemptID, step, err)
	}
}

func (p *Pipeline) failAttempt(attempt *certModels.IssueAttempt, code string) {
	attempt.Step = certModels.StepFailed
	attempt.FailureCode = code
	if err := p.DB.Model(attempt).Updates(map[string]interface{}{
		"step":         certModels.StepFailed,
		"failure_code": code,
	}).Error; err != nil {
		log.Printf("[PIPELINE] Failed to mark attempt %s failed: %v", attempt.AttemptID, err)
	}
}

// reconcileAlert handles the one non-retriable failure class: the chain
// holds a mint the local database does not know about
func (p *Pipeline) reconcileAlert(attempt *certModels.IssueAttempt, e *Eligibility, receipt clients.MintReceipt, cause error) {
	if err := p.DB.Model(attempt).Updates(map[string]interface{}{
		"failure_code":         CodePersistAfterMint,
		"needs_reconciliation": true,
	}).Error; err != nil {
		log.Printf("[PIPELINE] Failed to flag attempt %s for reconciliation: %v", attempt.AttemptID, err)
	}

	LogAudit(p.DB, nil, certModels.ActionReconcileAlert, "IssueAttempt", attempt.AttemptID, map[string]interface{}{
		"examResultId": e.Result.ID,
		"tokenId":      receipt.TokenID,
		"mintTxHash":   receipt.TxHash,
		"error":        cause.Error(),
	})

	subject := fmt.Sprintf("Certificate mint without local record (exam result %d)", e.Result.ID)
	body := fmt.Sprintf(
		"Mint tx %s (token %s) succeeded but the certificate row could not be persisted: %v. Attempt %s requires manual reconciliation.",
		receipt.TxHash, receipt.TokenID, cause, attempt.AttemptID,
	)
	if p.Alerts != nil {
		if err := p.Alerts.SendReconciliationAlert(subject, body); err != nil {
			log.Printf("[PIPELINE] Failed to send reconciliation alert: %v", err)
		}
	}
}

func (p *Pipeline) certificateData(e *Eligibility, issueDate, code, verifyURL string) clients.CertificateData {
	dob := ""
	if e.User.DOB != nil {
		dob = e.User.DOB.Format("2006-01-02")
	}
	score := ""
	if e.Result.Score != nil {
		score = strconv.FormatFloat(*e.Result.Score, 'f', -1, 64)
	}
	return clients.CertificateData{
		StudentName:     e.User.Name,
		StudentDOB:      dob,
		StudentIDCard:   e.User.IDCard,
		CourseTitle:     e.Course.Title,
		ExamScore:       score,
		CompletionDate:  e.Session.Date.Format("2006-01-02"),
		IssueDate:       issueDate,
		CertificateCode: code,
		IssuerName:      p.Opts.IssuerName,
		VerifyURL:       verifyURL,
	}
}

// textPreview builds the compact content summary the detection service
// embeds and compares
func (p *Pipeline) textPreview(e *Eligibility) string {
	dob := "N/A"
	if e.User.DOB != nil {
		dob = e.User.DOB.Format("2006-01-02")
	}
	score := ""
	if e.Result.Score != nil {
		score = strconv.FormatFloat(*e.Result.Score, 'f', -1, 64)
	}
	return fmt.Sprintf(
		"Certificate of completion for %s issued by %s. Learner: %s, DOB: %s, ID: %s, Exam date: %s, Score: %s, Result: %s. Valid for two years from issue date.",
		e.Course.Title, p.Opts.IssuerName, e.User.Name, dob, e.User.IDCard,
		e.Session.Date.Format("2006-01-02"), score, e.Result.Status,
	)
}

// validateScore checks the score against the course category's range
func (p *Pipeline) validateScore(e *Eligibility) error {
	score := 0.0
	if e.Result.Score != nil {
		score = *e.Result.Score
	}
	switch e.Course.Category {
	case "TOEIC":
		if score < 250 || score > 900 {
			return pipelineErrf(CodeScoreOutOfRange, "TOEIC score %.0f out of range", score)
		}
	case "TINHOC":
		if score < 0 || score > 10 {
			return pipelineErrf(CodeScoreOutOfRange, "TINHOC score %.1f out of range", score)
		}
	default:
		return pipelineErrf(CodeCategoryUnsupported, "category %q not supported", e.Course.Category)
	}
	return nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
