package controllers

import (
	"certmint/database"
	"certmint/middleware"
	certModels "certmint/models/cert"
	courseModels "certmint/models/course"
	examModels "certmint/models/exam"
	"certmint/services"

	"github.com/gofiber/fiber/v2"
)

// EligibleList returns which PASS results of a session can be certified and
// which would be skipped, using the same eligibility rules as the batch
// driver
func EligibleList(c *fiber.Ctx) error {
	sessionID, err := c.ParamsInt("sessionId")
	if err != nil || sessionID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid session id!", nil)
	}

	var results []examModels.ExamResult
	if err := database.Database.Db.
		Where("exam_session_id = ? AND status = ?", sessionID, examModels.StatusPass).
		Order("id asc").Find(&results).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch exam results!", nil)
	}

	type eligibleItem struct {
		ExamResultID  uint     `json:"examResultId"`
		UserID        uint     `json:"userId"`
		StudentName   string   `json:"studentName"`
		Score         *float64 `json:"score"`
		WalletAddress string   `json:"walletAddress"`
		DedupStatus   string   `json:"dedupStatus"`
	}

	eligible := []eligibleItem{}
	skipped := []services.SkippedItem{}

	for _, r := range results {
		e, err := services.EligibilityCheck(database.Database.Db, r.ID)
		if err != nil {
			skipped = append(skipped, services.SkippedItem{ExamResultID: r.ID, Reason: services.ErrorCode(err)})
			continue
		}
		if e.Reason != "" {
			skipped = append(skipped, services.SkippedItem{ExamResultID: r.ID, Reason: e.Reason})
			continue
		}
		eligible = append(eligible, eligibleItem{
			ExamResultID:  r.ID,
			UserID:        e.User.ID,
			StudentName:   e.User.Name,
			Score:         e.Result.Score,
			WalletAddress: e.User.WalletAddress,
			DedupStatus:   e.Finding.Status,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Eligibility computed!", fiber.Map{
		"sessionId": sessionID,
		"eligible":  eligible,
		"skipped":   skipped,
	})
}

// GetUserCertificates lists the authenticated learner's certificates
func GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	type certificateWithCourse struct {
		certModels.Certificate
		CourseName string `json:"course_name"`
	}

	var certificates []certModels.Certificate
	if err := database.Database.Db.
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	result := make([]certificateWithCourse, len(certificates))
	for i, certificate := range certificates {
		var course courseModels.Course
		database.Database.Db.Where("id = ?", certificate.CourseID).First(&course)
		result[i] = certificateWithCourse{
			Certificate: certificate,
			CourseName:  course.Title,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": result,
		"total":        len(result),
	})
}

// VerifyCertificate is the public lookup behind the verification URL
// printed on certificates. It resolves by certificate code or token id and
// always reports revocation status.
func VerifyCertificate(c *fiber.Ctx) error {
	ref := c.Params("ref")
	if ref == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing certificate reference!", nil)
	}

	var certificate certModels.Certificate
	err := database.Database.Db.
		Where("(certificate_code = ? OR token_id = ?) AND is_deleted = ?", ref, ref, false).
		First(&certificate).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
	}

	var course courseModels.Course
	database.Database.Db.Where("id = ?", certificate.CourseID).First(&course)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate found!", fiber.Map{
		"certificate_code": certificate.CertificateCode,
		"course":           course.Title,
		"token_id":         certificate.TokenID,
		"token_uri":        certificate.TokenURI,
		"doc_hash":         certificate.DocHash,
		"mint_tx_hash":     certificate.MintTxHash,
		"issued_at":        certificate.IssuedAt,
		"revoked":          certificate.Revoked,
		"revoked_at":       certificate.RevokedAt,
	})
}

// GetAuditTrail lists audit entries for an entity, newest first
func GetAuditTrail(c *fiber.Ctx) error {
	entity := c.Query("entity")
	entityID := c.Query("entityId")
	if entity == "" || entityID == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "entity and entityId are required!", nil)
	}

	var entries []certModels.AuditEntry
	if err := database.Database.Db.
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at desc").Limit(200).Find(&entries).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch audit trail!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Audit trail fetched successfully!", fiber.Map{
		"entries": entries,
		"total":   len(entries),
	})
}
