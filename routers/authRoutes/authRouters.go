package authRoutes

import (
	authControllers "certmint/controllers/auth"
	"certmint/middleware"
	authValidators "certmint/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/register", authValidators.Register(), authControllers.Register)
	authGroup.Post("/login", authValidators.Login(), authControllers.Login)

	userGroup := app.Group("/user")
	userGroup.Patch("/wallet", middleware.JWTMiddleware, authValidators.UpdateWallet(), authControllers.UpdateWallet)

	adminGroup := app.Group("/admin/user")
	adminGroup.Post("/:userId/verify-wallet", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), authControllers.VerifyWallet)
}
