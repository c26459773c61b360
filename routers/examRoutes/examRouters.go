package examRoutes

import (
	examControllers "certmint/controllers/exam"
	"certmint/middleware"
	examValidators "certmint/validators/exam"

	"github.com/gofiber/fiber/v2"
)

// SetupExamRoutes sets up admin exam session and grading routes
func SetupExamRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin/exam")

	adminGroup.Post("/session", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), examValidators.CreateSession(), examControllers.CreateExamSession)
	adminGroup.Post("/result", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), examValidators.RecordResult(), examControllers.RecordExamResult)
	adminGroup.Get("/session/:sessionId/results", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), examControllers.ListSessionResults)
}
