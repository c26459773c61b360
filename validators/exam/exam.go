package examValidator

import (
	"strings"

	examControllers "certmint/controllers/exam"
	"certmint/middleware"
	examModels "certmint/models/exam"

	"github.com/gofiber/fiber/v2"
)

// CreateSession validates the exam session creation request
func CreateSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(examControllers.SessionRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.CourseID < 1 {
			errors["course_id"] = "Course id is required!"
		}
		if strings.TrimSpace(reqData.Name) == "" {
			errors["name"] = "Session name is required!"
		}
		if reqData.Date.IsZero() {
			errors["date"] = "Session date is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedSession", reqData)
		return c.Next()
	}
}

// RecordResult validates the exam result grading request
func RecordResult() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(examControllers.ResultRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.ExamSessionID < 1 {
			errors["exam_session_id"] = "Exam session id is required!"
		}
		if reqData.UserID < 1 {
			errors["user_id"] = "Learner id is required!"
		}

		status := strings.ToUpper(strings.TrimSpace(reqData.Status))
		if status != examModels.StatusPass && status != examModels.StatusFail {
			errors["status"] = "Status must be PASS or FAIL!"
		} else {
			reqData.Status = status
		}

		if status == examModels.StatusPass && reqData.Score == nil {
			errors["score"] = "Score is required for a PASS result!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedResult", reqData)
		return c.Next()
	}
}
