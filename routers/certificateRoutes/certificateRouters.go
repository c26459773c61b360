package certificateRoutes

import (
	certControllers "certmint/controllers/certificate"
	"certmint/middleware"
	certValidators "certmint/validators/certificate"

	"github.com/gofiber/fiber/v2"
)

// SetupCertificateRoutes sets up issuance, revocation and verification routes
func SetupCertificateRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin/certificate")

	adminGroup.Post("/render-preview", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certValidators.RenderPreview(), certControllers.RenderPreview)
	adminGroup.Post("/issue-final", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certValidators.IssueFinal(), certControllers.IssueFinal)
	adminGroup.Post("/issue-batch", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certValidators.IssueBatch(), certControllers.IssueBatch)
	adminGroup.Patch("/:id/revoke", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certValidators.Revoke(), certControllers.Revoke)
	adminGroup.Post("/:id/write-onchain", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certValidators.WriteOnchain(), certControllers.WriteOnchain)
	adminGroup.Get("/eligible/:sessionId", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certControllers.EligibleList)
	adminGroup.Get("/audit", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certControllers.GetAuditTrail)

	decisionGroup := app.Group("/admin/exam-results")
	decisionGroup.Post("/:id/decision", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), certValidators.Decide(), certControllers.Decide)

	userGroup := app.Group("/user")
	userGroup.Get("/certificates", middleware.JWTMiddleware, certControllers.GetUserCertificates)

	// Public lookup for certificate holders and third-party verifiers
	app.Get("/cert/:ref", certControllers.VerifyCertificate)

	app.Get("/health", certControllers.Health)
}
