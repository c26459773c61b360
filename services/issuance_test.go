package services

import (
	"errors"
	"testing"
	"time"

	"certmint/clients"
	"certmint/models"
	certModels "certmint/models/cert"
	examModels "certmint/models/exam"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueHappyPath(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "alice", 800)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	require.NotNil(t, out.Certificate)
	assert.False(t, out.Reused)
	assert.False(t, out.RequiresDecision)
	assert.Equal(t, 89, out.ChainID)
	assert.Equal(t, "https://verify.example.com/cert/"+out.Certificate.CertificateCode, out.VerifyURL)

	cert := out.Certificate
	assert.NotEmpty(t, cert.CertificateCode)
	assert.NotEmpty(t, cert.TokenID)
	assert.NotEmpty(t, cert.MintTxHash)
	assert.NotEmpty(t, cert.EvidenceCid)
	assert.NotEmpty(t, cert.MetadataCid)
	assert.Equal(t, "ipfs://"+cert.MetadataCid, cert.TokenURI)

	reloaded := f.reloadResult(t, result.ID)
	assert.True(t, reloaded.Locked)
	assert.False(t, reloaded.InProgress)

	var attempt certModels.IssueAttempt
	require.NoError(t, f.db.Where("exam_result_id = ?", result.ID).First(&attempt).Error)
	assert.Equal(t, certModels.StepPersisted, attempt.Step)
	assert.False(t, attempt.NeedsReconciliation)

	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionCertificateIssued))
	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionRenderPreview))
	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionDedupCheck))
}

func TestIssueFinalHashDiffersFromPreviewFingerprint(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "bob", 700)

	preview, err := f.pipeline.RenderPreview(result.ID, "2026-09-01", nil)
	require.NoError(t, err)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)

	assert.NotEqual(t, preview.PreviewFingerprint, out.Certificate.DocHash)

	var finding certModels.DedupFinding
	require.NoError(t, f.db.Where("exam_result_id = ?", result.ID).Order("checked_at desc").First(&finding).Error)
	assert.NotEqual(t, finding.PreviewFingerprint, out.Certificate.DocHash)
}

func TestIssueReusesExistingCertificate(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "carol", 650)

	first, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	mints := f.minter.mints

	second, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Certificate.CertificateCode, second.Certificate.CertificateCode)
	assert.Equal(t, mints, f.minter.mints)
	assert.EqualValues(t, 1, f.certificateCount(t, result.ID))
}

func TestIssueLockedWithoutLiveCertificate(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "dave", 600)
	require.NoError(t, f.db.Model(&examModels.ExamResult{}).Where("id = ?", result.ID).Update("locked", true).Error)

	_, err := f.pipeline.Issue(result.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, CodeLocked, ErrorCode(err))
	assert.Zero(t, f.minter.mints)
}

func TestIssueRejectsFailedResult(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "erin", true)
	course := f.seedCourse(t, "TOEIC")
	session := f.seedSession(t, course.ID)
	result := f.seedResult(t, session.ID, user.ID, 300, examModels.StatusFail)

	_, err := f.pipeline.Issue(result.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, CodeNotPass, ErrorCode(err))
}

func TestIssueRequiresVerifiedWallet(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "frank", false)
	course := f.seedCourse(t, "TOEIC")
	session := f.seedSession(t, course.ID)
	result := f.seedResult(t, session.ID, user.ID, 800, examModels.StatusPass)

	_, err := f.pipeline.Issue(result.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, CodeWalletMissing, ErrorCode(err))
	assert.Zero(t, f.renderer.calls)
}

func TestIssueValidatesScoreRange(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "grace", 950) // above the TOEIC ceiling

	_, err := f.pipeline.Issue(result.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, CodeScoreOutOfRange, ErrorCode(err))
	assert.Zero(t, f.minter.mints)
}

func TestCheckDuplicateFailsOpenWhenServiceDown(t *testing.T) {
	f := newFixture(t)
	f.dedup.checkErr = clients.ErrDedupUnreachable
	result := f.seedPassResult(t, "henry", 720)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	require.NotNil(t, out.Certificate)

	var finding certModels.DedupFinding
	require.NoError(t, f.db.Where("exam_result_id = ?", result.ID).First(&finding).Error)
	assert.Equal(t, certModels.DedupUnavailable, finding.Status)

	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionDedupUnavailable))
	assert.EqualValues(t, 1, f.certificateCount(t, result.ID))
}

func TestIssueHaltsOnExactDuplicate(t *testing.T) {
	f := newFixture(t)
	f.dedup.outcome = clients.DedupOutcome{
		Status:          certModels.DedupDuplicate,
		SimilarityScore: 0.99,
		Candidates:      []clients.DedupCandidate{{CertificateID: "CERT-17", Similarity: 0.99}},
	}
	result := f.seedPassResult(t, "iris", 810)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	assert.True(t, out.RequiresDecision)
	assert.Equal(t, "EXACT", out.DecisionType)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "CERT-17", out.Candidates[0].CertificateID)

	assert.Zero(t, f.minter.mints)
	assert.EqualValues(t, 0, f.certificateCount(t, result.ID))
	assert.False(t, f.reloadResult(t, result.ID).Locked)
}

func TestIssueHaltsOnSuspectedCopy(t *testing.T) {
	f := newFixture(t)
	f.dedup.outcome = clients.DedupOutcome{
		Status:          certModels.DedupSuspectedCopy,
		SimilarityScore: 0.9,
		Candidates:      []clients.DedupCandidate{{CertificateID: "CERT-23", Similarity: 0.9}},
	}
	result := f.seedPassResult(t, "jack", 770)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	assert.True(t, out.RequiresDecision)
	assert.Equal(t, "SIMILAR", out.DecisionType)
	assert.Zero(t, f.minter.mints)
}

func TestMintFailureLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	f.minter.mintErr = clients.ErrMinterUnreachable
	result := f.seedPassResult(t, "kate", 680)

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	assert.Equal(t, CodeMintFailed, ErrorCode(err))

	assert.EqualValues(t, 0, f.certificateCount(t, result.ID))
	reloaded := f.reloadResult(t, result.ID)
	assert.False(t, reloaded.Locked)
	assert.False(t, reloaded.InProgress)

	var attempt certModels.IssueAttempt
	require.NoError(t, f.db.Where("exam_result_id = ?", result.ID).First(&attempt).Error)
	assert.Equal(t, certModels.StepFailed, attempt.Step)
	assert.Equal(t, CodeMintFailed, attempt.FailureCode)
}

func TestEvidenceFailureAbortsBeforeMint(t *testing.T) {
	f := newFixture(t)
	f.evidence.err = errors.New("pinning gateway timeout")
	result := f.seedPassResult(t, "liam", 690)

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	assert.Equal(t, CodeEvidenceStoreFailed, ErrorCode(err))
	assert.Zero(t, f.minter.mints)
	assert.EqualValues(t, 0, f.certificateCount(t, result.ID))
}

func TestPersistFailureAfterMintRaisesReconciliation(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "mona", 730)

	// A concurrent run wins the race between our mint and our persist; the
	// partial unique index rejects the second live certificate.
	f.minter.onMint = func() {
		rival := certModels.Certificate{
			UserID:          result.UserID,
			CourseID:        1,
			ExamResultID:    result.ID,
			CertificateCode: "CERT-RIVAL",
			TokenID:         "999",
			IssuedAt:        time.Now(),
		}
		require.NoError(t, f.db.Create(&rival).Error)
	}

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	assert.Equal(t, CodePersistAfterMint, ErrorCode(err))

	var attempt certModels.IssueAttempt
	require.NoError(t, f.db.Where("exam_result_id = ?", result.ID).First(&attempt).Error)
	assert.True(t, attempt.NeedsReconciliation)
	assert.Equal(t, certModels.StepMinted, attempt.Step)
	assert.NotEmpty(t, attempt.MintTxHash)

	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionReconcileAlert))
	require.Len(t, f.alerts.subjects, 1)
}

func TestRetryAfterPersistFailureDoesNotRemint(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "nora", 740)

	rival := certModels.Certificate{
		UserID:          result.UserID,
		CourseID:        1,
		ExamResultID:    result.ID,
		CertificateCode: "CERT-RIVAL",
		TokenID:         "999",
		IssuedAt:        time.Now(),
	}
	f.minter.onMint = func() {
		require.NoError(t, f.db.Create(&rival).Error)
	}

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	require.Equal(t, CodePersistAfterMint, ErrorCode(err))
	require.EqualValues(t, 1, f.minter.mints)

	var attempt certModels.IssueAttempt
	require.NoError(t, f.db.Where("exam_result_id = ?", result.ID).First(&attempt).Error)
	require.True(t, attempt.NeedsReconciliation)

	// Operator resolves the conflict, the retry finishes from the stored
	// receipt without touching the chain again
	require.NoError(t, f.db.Unscoped().Delete(&rival).Error)
	f.minter.onMint = nil

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	require.NotNil(t, out.Certificate)

	assert.EqualValues(t, 1, f.minter.mints)
	assert.Equal(t, attempt.MintTxHash, out.Certificate.MintTxHash)
	assert.Equal(t, attempt.TokenID, out.Certificate.TokenID)
	assert.Equal(t, attempt.CertificateCode, out.Certificate.CertificateCode)
	assert.Equal(t, attempt.DocHash, out.Certificate.DocHash)

	reloaded := f.reloadResult(t, result.ID)
	assert.True(t, reloaded.Locked)
	assert.False(t, reloaded.InProgress)

	var reconciled certModels.IssueAttempt
	require.NoError(t, f.db.Where("id = ?", attempt.ID).First(&reconciled).Error)
	assert.True(t, reconciled.Reconciled)
	assert.False(t, reconciled.NeedsReconciliation)
	assert.Equal(t, certModels.StepPersisted, reconciled.Step)

	assert.EqualValues(t, 1, f.certificateCount(t, result.ID))
}

func TestRetryWhilePersistStillFailingStaysStranded(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "omar", 760)

	f.minter.onMint = func() {
		rival := certModels.Certificate{
			UserID:          result.UserID,
			CourseID:        1,
			ExamResultID:    result.ID,
			CertificateCode: "CERT-RIVAL2",
			TokenID:         "998",
			IssuedAt:        time.Now(),
		}
		require.NoError(t, f.db.Create(&rival).Error)
	}

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	require.Equal(t, CodePersistAfterMint, ErrorCode(err))
	f.minter.onMint = nil

	// The rival is still live, so the retry fails again, but without a
	// second mint
	_, err = f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	assert.Equal(t, CodePersistAfterMint, ErrorCode(err))
	assert.EqualValues(t, 1, f.minter.mints)
}

func TestClaimBlocksConcurrentIssuance(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "nina", 750)
	require.NoError(t, f.db.Model(&examModels.ExamResult{}).Where("id = ?", result.ID).Update("in_progress", true).Error)

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.Error(t, err)
	assert.Equal(t, CodeIssuanceInProgress, ErrorCode(err))
	assert.Zero(t, f.minter.mints)
}

func TestDecideBlockRefusesIssuance(t *testing.T) {
	f := newFixture(t)
	f.dedup.outcome = clients.DedupOutcome{
		Status:          certModels.DedupDuplicate,
		SimilarityScore: 0.99,
		Candidates:      []clients.DedupCandidate{{CertificateID: "CERT-17", Similarity: 0.99}},
	}
	result := f.seedPassResult(t, "olga", 820)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	require.True(t, out.RequiresDecision)

	decided, err := f.pipeline.Decide(result.ID, "BLOCK", "confirmed forgery", nil, "admin")
	require.NoError(t, err)
	assert.True(t, decided.Blocked)

	assert.EqualValues(t, 0, f.certificateCount(t, result.ID))
	assert.False(t, f.reloadResult(t, result.ID).Locked)
	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionDedupBlocked))
	assert.Equal(t, []string{"BLOCK"}, f.dedup.decisions)
}

func TestDecideAllowIssuesExactlyOne(t *testing.T) {
	f := newFixture(t)
	f.dedup.outcome = clients.DedupOutcome{
		Status:          certModels.DedupSuspectedCopy,
		SimilarityScore: 0.9,
		Candidates:      []clients.DedupCandidate{{CertificateID: "CERT-23", Similarity: 0.9}},
	}
	result := f.seedPassResult(t, "pete", 640)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	require.True(t, out.RequiresDecision)

	decided, err := f.pipeline.Decide(result.ID, "ALLOW", "retake, same learner", nil, "admin")
	require.NoError(t, err)
	assert.False(t, decided.Blocked)
	require.NotNil(t, decided.Issue)
	require.NotNil(t, decided.Issue.Certificate)

	assert.EqualValues(t, 1, f.certificateCount(t, result.ID))
	assert.True(t, f.reloadResult(t, result.ID).Locked)
	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionDedupOverride))
}

func TestDecideAllowRechecksWallet(t *testing.T) {
	f := newFixture(t)
	f.dedup.outcome = clients.DedupOutcome{
		Status:          certModels.DedupDuplicate,
		SimilarityScore: 0.99,
		Candidates:      []clients.DedupCandidate{{CertificateID: "CERT-17", Similarity: 0.99}},
	}
	result := f.seedPassResult(t, "uma", 790)

	out, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	require.True(t, out.RequiresDecision)

	// The wallet disappears between the halt and the adjudication
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", result.UserID).
		Updates(map[string]interface{}{"wallet_address": "", "is_wallet_verified": false}).Error)

	_, err = f.pipeline.Decide(result.ID, "ALLOW", "retake", nil, "admin")
	require.Error(t, err)
	assert.Equal(t, CodeWalletMissing, ErrorCode(err))
	assert.Zero(t, f.minter.mints)
	assert.EqualValues(t, 0, f.certificateCount(t, result.ID))
}

func TestDecideRequiresPendingFinding(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "quin", 710)

	_, err := f.pipeline.Decide(result.ID, "ALLOW", "", nil, "admin")
	require.Error(t, err)
	assert.Equal(t, CodeDecisionNotPending, ErrorCode(err))
}

func TestDecideSurvivesDecisionForwardFailure(t *testing.T) {
	f := newFixture(t)
	f.dedup.outcome = clients.DedupOutcome{
		Status:          certModels.DedupDuplicate,
		SimilarityScore: 0.99,
		Candidates:      []clients.DedupCandidate{{CertificateID: "CERT-17", Similarity: 0.99}},
	}
	result := f.seedPassResult(t, "rosa", 830)

	_, err := f.pipeline.Issue(result.ID, "2026-09-01", nil)
	require.NoError(t, err)

	f.dedup.decisionErr = clients.ErrDedupUnreachable
	decided, err := f.pipeline.Decide(result.ID, "BLOCK", "", nil, "admin")
	require.NoError(t, err)
	assert.True(t, decided.Blocked)
}

func TestRenderPreviewWritesAuditOnly(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "sam", 760)

	preview, err := f.pipeline.RenderPreview(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, preview.PDF)
	assert.NotEmpty(t, preview.PreviewFingerprint)
	assert.NotEmpty(t, preview.CertificateCode)

	assert.EqualValues(t, 1, f.auditCount(t, certModels.ActionRenderPreview))
	assert.EqualValues(t, 0, f.certificateCount(t, result.ID))
	assert.False(t, f.reloadResult(t, result.ID).Locked)
}

func TestRenderPreviewIsDeterministicPerContent(t *testing.T) {
	f := newFixture(t)
	result := f.seedPassResult(t, "tina", 780)

	first, err := f.pipeline.RenderPreview(result.ID, "2026-09-01", nil)
	require.NoError(t, err)
	second, err := f.pipeline.RenderPreview(result.ID, "2026-09-01", nil)
	require.NoError(t, err)

	assert.Equal(t, first.PreviewFingerprint, second.PreviewFingerprint)
	assert.NotEqual(t, first.CertificateCode, second.CertificateCode)
}
