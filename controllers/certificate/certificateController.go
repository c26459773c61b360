package controllers

import (
	"encoding/base64"

	"certmint/database"
	"certmint/middleware"
	"certmint/models"
	courseModels "certmint/models/course"
	"certmint/services"
	"certmint/utils"

	"github.com/gofiber/fiber/v2"
)

// HealthChecker pings an external dependency
type HealthChecker interface {
	Health() error
}

var (
	pipeline    *services.Pipeline
	revocations *services.RevocationService
	mailer      *utils.EmailService
	dedupHealth HealthChecker
)

// Init wires the controllers with the issuance pipeline, revocation service,
// mailer and the dedup health probe
func Init(p *services.Pipeline, r *services.RevocationService, m *utils.EmailService, h HealthChecker) {
	pipeline = p
	revocations = r
	mailer = m
	dedupHealth = h
}

// Health reports service liveness and the reachability of the AI dedup
// service. The pipeline fails open on a dedup outage, so a degraded answer
// is informational, not an error.
func Health(c *fiber.Ctx) error {
	dedupStatus := "up"
	if dedupHealth != nil {
		if err := dedupHealth.Health(); err != nil {
			dedupStatus = "down"
		}
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Service is running!", fiber.Map{
		"ai_dedup": dedupStatus,
	})
}

// notifyIssued mails the learner their new certificate, best effort
func notifyIssued(result *services.IssueResult) {
	if mailer == nil || result == nil || result.Certificate == nil {
		return
	}
	var user models.User
	if err := database.Database.Db.Where("id = ?", result.Certificate.UserID).First(&user).Error; err != nil {
		return
	}
	var course courseModels.Course
	database.Database.Db.Where("id = ?", result.Certificate.CourseID).First(&course)
	go mailer.SendCertificateIssued(user.Email, user.Name, course.Title, result.Certificate.CertificateCode, result.VerifyURL)
}

func actor(c *fiber.Ctx) (*uint, string) {
	var id *uint
	if v, ok := c.Locals("userId").(uint); ok {
		id = &v
	}
	name, _ := c.Locals("userName").(string)
	return id, name
}

// statusForCode maps pipeline failure codes onto HTTP statuses
func statusForCode(code string) int {
	switch code {
	case services.CodeNotFound:
		return fiber.StatusNotFound
	case services.CodeScoreOutOfRange, services.CodeCategoryUnsupported:
		return fiber.StatusBadRequest
	case services.CodeNotPass, services.CodeLocked, services.CodeIssuanceInProgress,
		services.CodeWalletMissing, services.CodeDedupNotUnique, services.CodeNoAIResult,
		services.CodeCertAlreadyIssued, services.CodeDecisionNotPending:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondPipelineError(c *fiber.Ctx, err error) error {
	code := services.ErrorCode(err)
	return middleware.JsonResponse(c, statusForCode(code), false, code, nil)
}

// RenderPreview renders the certificate preview and returns its fingerprint
func RenderPreview(c *fiber.Ctx) error {
	req := c.Locals("validatedPreview").(*PreviewRequest)
	actorID, _ := actor(c)

	preview, err := pipeline.RenderPreview(req.ExamResultID, req.IssueDate, actorID)
	if err != nil {
		return respondPipelineError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Preview rendered successfully!", fiber.Map{
		"pdf":              fiber.Map{"base64": base64.StdEncoding.EncodeToString(preview.PDF)},
		"preIssueHash":     preview.PreviewFingerprint,
		"certificate_code": preview.CertificateCode,
	})
}

// IssueFinal drives the full issuance pipeline for one exam result
func IssueFinal(c *fiber.Ctx) error {
	req := c.Locals("validatedIssue").(*IssueRequest)
	actorID, _ := actor(c)

	result, err := pipeline.Issue(req.ExamResultID, req.IssueDate, actorID)
	if err != nil {
		return respondPipelineError(c, err)
	}

	if result.RequiresDecision {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Duplicate suspected, admin decision required!", result)
	}
	if result.Reused {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate already issued for this exam result!", result)
	}
	notifyIssued(result)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate issued successfully!", result)
}

// IssueBatch certifies every eligible result of an exam session
func IssueBatch(c *fiber.Ctx) error {
	req := c.Locals("validatedBatch").(*BatchRequest)
	actorID, _ := actor(c)

	result, err := pipeline.IssueBatch(req.SessionID, actorID)
	if err != nil {
		return respondPipelineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Batch issuance completed!", result)
}

// Decide resolves a pending duplicate finding with ALLOW or BLOCK
func Decide(c *fiber.Ctx) error {
	req := c.Locals("validatedDecision").(*DecisionRequest)
	actorID, actorName := actor(c)

	result, err := pipeline.Decide(req.ExamResultID, req.Decision, req.Note, actorID, actorName)
	if err != nil {
		return respondPipelineError(c, err)
	}

	if result.Blocked {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Issuance refused by admin decision.", result)
	}
	notifyIssued(result.Issue)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Issuance approved and completed!", result)
}

// Revoke flips a certificate to revoked, optionally revoking on chain
func Revoke(c *fiber.Ctx) error {
	req := c.Locals("validatedRevoke").(*RevokeRequest)
	actorID, _ := actor(c)

	certificate, err := revocations.Revoke(req.CertificateID, req.Reason, actorID, req.AttemptOnchain)
	if err != nil {
		return respondPipelineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate revoked!", certificate)
}

// WriteOnchain retries a failed on-chain revocation
func WriteOnchain(c *fiber.Ctx) error {
	req := c.Locals("validatedWriteOnchain").(*WriteOnchainRequest)
	actorID, _ := actor(c)

	certificate, err := revocations.WriteOnchain(req.CertificateID, actorID)
	if err != nil {
		return respondPipelineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "On-chain revocation recorded!", certificate)
}
