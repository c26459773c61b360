package certificateValidator

import (
	"strings"
	"time"

	certControllers "certmint/controllers/certificate"
	"certmint/middleware"

	"github.com/gofiber/fiber/v2"
)

func validIssueDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

// RenderPreview validates the preview render request
func RenderPreview() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(certControllers.PreviewRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.ExamResultID < 1 {
			errors["examResultId"] = "Exam result id is required!"
		}
		if reqData.IssueDate != "" && !validIssueDate(reqData.IssueDate) {
			errors["issue_date"] = "Issue date must be formatted YYYY-MM-DD!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedPreview", reqData)
		return c.Next()
	}
}

// IssueFinal validates the issuance request
func IssueFinal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(certControllers.IssueRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.ExamResultID < 1 {
			errors["examResultId"] = "Exam result id is required!"
		}
		if reqData.IssueDate != "" && !validIssueDate(reqData.IssueDate) {
			errors["issue_date"] = "Issue date must be formatted YYYY-MM-DD!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedIssue", reqData)
		return c.Next()
	}
}

// IssueBatch validates the batch issuance request
func IssueBatch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(certControllers.BatchRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.SessionID < 1 {
			errors["sessionId"] = "Session id is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedBatch", reqData)
		return c.Next()
	}
}

// Decide validates the admin decision request
func Decide() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(certControllers.DecisionRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		resultID, err := c.ParamsInt("id")
		if err != nil || resultID < 1 {
			errors["id"] = "Exam result id is required!"
		} else {
			reqData.ExamResultID = uint(resultID)
		}

		decision := strings.ToUpper(strings.TrimSpace(reqData.Decision))
		if decision != "ALLOW" && decision != "BLOCK" {
			errors["decision"] = "Decision must be ALLOW or BLOCK!"
		} else {
			reqData.Decision = decision
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedDecision", reqData)
		return c.Next()
	}
}

// Revoke validates the revocation request
func Revoke() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(certControllers.RevokeRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		certID, err := c.ParamsInt("id")
		if err != nil || certID < 1 {
			errors["id"] = "Certificate id is required!"
		} else {
			reqData.CertificateID = uint(certID)
		}

		if strings.TrimSpace(reqData.Reason) == "" {
			errors["reason"] = "Revocation reason is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRevoke", reqData)
		return c.Next()
	}
}

// WriteOnchain validates the on-chain revocation retry request
func WriteOnchain() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(certControllers.WriteOnchainRequest)

		errors := make(map[string]string)

		certID, err := c.ParamsInt("id")
		if err != nil || certID < 1 {
			errors["id"] = "Certificate id is required!"
		} else {
			reqData.CertificateID = uint(certID)
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedWriteOnchain", reqData)
		return c.Next()
	}
}
