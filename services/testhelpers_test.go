package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"certmint/clients"
	"certmint/database"
	"certmint/models"
	certModels "certmint/models/cert"
	courseModels "certmint/models/course"
	examModels "certmint/models/exam"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDb(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	database.RunMigrations(db)
	return db
}

type fakeRenderer struct {
	err   error
	calls int
	// failFor aborts the render when the student name matches, so batch
	// tests can fail a single item
	failFor string
}

func (r *fakeRenderer) Render(data clients.CertificateData, mode string) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.failFor != "" && data.StudentName == r.failFor {
		return nil, errors.New("render crashed")
	}
	return []byte(fmt.Sprintf("%%PDF %s|%s|%s|%s", mode, data.StudentName, data.CertificateCode, data.VerifyURL)), nil
}

type fakeDedup struct {
	outcome       clients.DedupOutcome
	checkErr      error
	decisionErr   error
	checks        int
	decisions     []string
	lastDecidedBy string
}

func (d *fakeDedup) Check(fingerprint, textPreview string) (clients.DedupOutcome, error) {
	d.checks++
	if d.checkErr != nil {
		return clients.DedupOutcome{}, d.checkErr
	}
	return d.outcome, nil
}

func (d *fakeDedup) Decision(checkID, decision, decidedBy, note string) error {
	d.decisions = append(d.decisions, decision)
	d.lastDecidedBy = decidedBy
	return d.decisionErr
}

type fakeEvidence struct {
	err     error
	uploads int
}

func (e *fakeEvidence) Upload(content []byte, name string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.uploads++
	return fmt.Sprintf("Qm%s%d", name, e.uploads), nil
}

type fakeMinter struct {
	mintErr   error
	revokeErr error
	mints     int
	revokes   int
	// onMint runs before a successful mint returns, letting tests inject
	// state changes between the mint and the persist step
	onMint func()
}

func (m *fakeMinter) Mint(contract, to, tokenURI string) (clients.MintReceipt, error) {
	m.mints++
	if m.mintErr != nil {
		return clients.MintReceipt{}, m.mintErr
	}
	if m.onMint != nil {
		m.onMint()
	}
	return clients.MintReceipt{TxHash: fmt.Sprintf("0xmint%d", m.mints), TokenID: fmt.Sprintf("%d", 100+m.mints)}, nil
}

func (m *fakeMinter) Revoke(contract, tokenID string) (string, error) {
	m.revokes++
	if m.revokeErr != nil {
		return "", m.revokeErr
	}
	return fmt.Sprintf("0xrevoke%d", m.revokes), nil
}

type fakeAlerts struct {
	subjects []string
}

func (a *fakeAlerts) SendReconciliationAlert(subject, body string) error {
	a.subjects = append(a.subjects, subject)
	return nil
}

type fixture struct {
	db       *gorm.DB
	pipeline *Pipeline
	renderer *fakeRenderer
	dedup    *fakeDedup
	evidence *fakeEvidence
	minter   *fakeMinter
	alerts   *fakeAlerts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       testDb(t),
		renderer: &fakeRenderer{},
		dedup:    &fakeDedup{outcome: clients.DedupOutcome{Status: certModels.DedupUnique}},
		evidence: &fakeEvidence{},
		minter:   &fakeMinter{},
		alerts:   &fakeAlerts{},
	}
	f.pipeline = NewPipeline(f.db, f.renderer, f.dedup, f.evidence, f.minter, f.alerts, PipelineOptions{
		ContractAddress: "0x00000000000000000000000000000000000000aa",
		ChainID:         89,
		VerifyBaseURL:   "https://verify.example.com/cert/",
		IssuerName:      "Test Academy",
	})
	return f
}

func (f *fixture) seedUser(t *testing.T, name string, walletVerified bool) models.User {
	t.Helper()
	wallet := ""
	if walletVerified {
		wallet = "0x1111111111111111111111111111111111111111"
	}
	user := models.User{
		Name:             name,
		Email:            fmt.Sprintf("%s@example.com", name),
		Role:             "USER",
		IDCard:           "ID-" + name,
		WalletAddress:    wallet,
		IsWalletVerified: walletVerified,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) seedCourse(t *testing.T, category string) courseModels.Course {
	t.Helper()
	course := courseModels.Course{Title: "Course " + category, Category: category, IsPublished: true}
	require.NoError(t, f.db.Create(&course).Error)
	return course
}

func (f *fixture) seedSession(t *testing.T, courseID uint) examModels.ExamSession {
	t.Helper()
	session := examModels.ExamSession{CourseID: courseID, Name: "Session 1", Date: time.Now()}
	require.NoError(t, f.db.Create(&session).Error)
	return session
}

func (f *fixture) seedResult(t *testing.T, sessionID, userID uint, score float64, status string) examModels.ExamResult {
	t.Helper()
	result := examModels.ExamResult{ExamSessionID: sessionID, UserID: userID, Score: &score, Status: status}
	require.NoError(t, f.db.Create(&result).Error)
	return result
}

// seedPassResult wires a full learner/course/session/result chain ready for
// issuance
func (f *fixture) seedPassResult(t *testing.T, name string, score float64) examModels.ExamResult {
	t.Helper()
	user := f.seedUser(t, name, true)
	course := f.seedCourse(t, "TOEIC")
	session := f.seedSession(t, course.ID)
	return f.seedResult(t, session.ID, user.ID, score, examModels.StatusPass)
}

// seedUniqueFinding records a prior clean dedup check, which the batch
// driver requires before it will mint
func (f *fixture) seedUniqueFinding(t *testing.T, r examModels.ExamResult) {
	t.Helper()
	finding := certModels.DedupFinding{
		UserID:             r.UserID,
		CourseID:           1,
		ExamResultID:       r.ID,
		PreviewFingerprint: fmt.Sprintf("fp-%d", r.ID),
		Status:             certModels.DedupUnique,
		CheckedAt:          time.Now(),
	}
	require.NoError(t, f.db.Create(&finding).Error)
}

func (f *fixture) certificateCount(t *testing.T, examResultID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&certModels.Certificate{}).
		Where("exam_result_id = ? AND revoked = ? AND is_deleted = ?", examResultID, false, false).
		Count(&n).Error)
	return n
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&certModels.AuditEntry{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func (f *fixture) reloadResult(t *testing.T, id uint) examModels.ExamResult {
	t.Helper()
	var r examModels.ExamResult
	require.NoError(t, f.db.Where("id = ?", id).First(&r).Error)
	return r
}
