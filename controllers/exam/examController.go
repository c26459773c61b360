package controllers

import (
	"certmint/database"
	"certmint/middleware"
	"certmint/models"
	courseModels "certmint/models/course"
	examModels "certmint/models/exam"

	"github.com/gofiber/fiber/v2"
)

// CreateExamSession creates a new exam sitting for a course
func CreateExamSession(c *fiber.Ctx) error {
	req := c.Locals("validatedSession").(*SessionRequest)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", req.CourseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	session := examModels.ExamSession{
		CourseID: req.CourseID,
		Name:     req.Name,
		Date:     req.Date,
	}
	if err := database.Database.Db.Create(&session).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create exam session!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Exam session created successfully!", session)
}

// RecordExamResult registers or grades a learner's attempt. Grading a
// locked result is rejected: the score is frozen once a certificate was
// issued against it.
func RecordExamResult(c *fiber.Ctx) error {
	req := c.Locals("validatedResult").(*ResultRequest)

	var session examModels.ExamSession
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", req.ExamSessionID, false).First(&session).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Exam session not found!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", req.UserID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Learner not found!", nil)
	}

	var result examModels.ExamResult
	err := database.Database.Db.
		Where("exam_session_id = ? AND user_id = ?", req.ExamSessionID, req.UserID).
		First(&result).Error
	if err == nil {
		if result.Locked {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Result locked after certificate issuance!", nil)
		}
		result.Score = req.Score
		result.Status = req.Status
		if err := database.Database.Db.Save(&result).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update exam result!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam result updated successfully!", result)
	}

	result = examModels.ExamResult{
		ExamSessionID: req.ExamSessionID,
		UserID:        req.UserID,
		Score:         req.Score,
		Status:        req.Status,
	}
	if err := database.Database.Db.Create(&result).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record exam result!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Exam result recorded successfully!", result)
}

// ListSessionResults lists all results of a session with learner names
func ListSessionResults(c *fiber.Ctx) error {
	sessionID, err := c.ParamsInt("sessionId")
	if err != nil || sessionID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid session id!", nil)
	}

	var results []examModels.ExamResult
	if err := database.Database.Db.
		Where("exam_session_id = ?", sessionID).
		Order("id asc").Find(&results).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch results!", nil)
	}

	type resultWithLearner struct {
		examModels.ExamResult
		LearnerName string `json:"learner_name"`
	}

	list := make([]resultWithLearner, len(results))
	for i, r := range results {
		var user models.User
		database.Database.Db.Where("id = ?", r.UserID).First(&user)
		list[i] = resultWithLearner{ExamResult: r, LearnerName: user.Name}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Results fetched successfully!", fiber.Map{
		"results": list,
		"total":   len(list),
	})
}
