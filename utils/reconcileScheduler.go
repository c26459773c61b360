package utils

import (
	"fmt"
	"log"

	"certmint/database"
	certModels "certmint/models/cert"
	"certmint/services"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
)

// InitializeReconcileScheduler sets up the daily reconciliation job
func InitializeReconcileScheduler(revocations *services.RevocationService, mailer *EmailService) {
	log.Println("[RECONCILE-SCHEDULER] Initializing reconcile scheduler...")

	c := cron.New()

	// Run daily at 7 AM to retry failed on-chain revocations and surface
	// minted-but-unpersisted attempts
	c.AddFunc("0 7 * * *", func() {
		log.Println("[RECONCILE-SCHEDULER] Running daily reconcile pass...")
		RetryPendingRevocations(revocations)
		SurfaceUnreconciledMints(mailer)
	})

	c.Start()
	log.Println("[RECONCILE-SCHEDULER] Reconcile scheduler started - runs daily at 7 AM")
}

// RetryPendingRevocations retries the on-chain revoke for certificates that
// were revoked locally while the chain call failed
func RetryPendingRevocations(revocations *services.RevocationService) {
	db := database.Database.Db

	var pending []certModels.Certificate
	if err := db.Where("revoked = ? AND onchain_revoke_pending = ? AND is_deleted = ?", true, true, false).
		Find(&pending).Error; err != nil {
		log.Printf("[RECONCILE-SCHEDULER] Error fetching pending revocations: %v", err)
		return
	}

	log.Printf("[RECONCILE-SCHEDULER] Found %d revocations pending on-chain write", len(pending))

	for _, certificate := range pending {
		if _, err := revocations.WriteOnchain(certificate.ID, nil); err != nil {
			log.Printf("[RECONCILE-SCHEDULER] Retry failed for certificate %d: %v", certificate.ID, err)
			continue
		}
		log.Printf("[RECONCILE-SCHEDULER] On-chain revoke completed for certificate %d", certificate.ID)
	}
}

// SurfaceUnreconciledMints alerts the operator about issue attempts that
// minted on chain but never produced a certificate row. Only attempts older
// than today are surfaced so an in-flight run is not flagged.
func SurfaceUnreconciledMints(mailer *EmailService) {
	db := database.Database.Db

	var stranded []certModels.IssueAttempt
	if err := db.Where("needs_reconciliation = ? AND reconciled = ? AND created_at < ?",
		true, false, now.BeginningOfDay()).
		Find(&stranded).Error; err != nil {
		log.Printf("[RECONCILE-SCHEDULER] Error fetching unreconciled attempts: %v", err)
		return
	}

	if len(stranded) == 0 {
		return
	}

	log.Printf("[RECONCILE-SCHEDULER] %d mint(s) still lack a local certificate record", len(stranded))

	body := "<ul>"
	for _, a := range stranded {
		body += fmt.Sprintf("<li>Attempt %s: exam result %d, token %s, tx %s</li>",
			a.AttemptID, a.ExamResultID, a.TokenID, a.MintTxHash)
	}
	body += "</ul>"

	subject := fmt.Sprintf("%d unreconciled certificate mint(s)", len(stranded))
	if err := mailer.SendReconciliationAlert(subject, body); err != nil {
		log.Printf("[RECONCILE-SCHEDULER] Failed to send reconcile digest: %v", err)
	}
}
