package authValidator

import (
	"regexp"
	"strings"

	authControllers "certmint/controllers/auth"
	"certmint/middleware"

	"github.com/gofiber/fiber/v2"
)

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// Register validates the registration request
func Register() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(authControllers.RegisterRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Name) == "" {
			errors["name"] = "Name is required!"
		} else if len(strings.TrimSpace(reqData.Name)) < 3 {
			errors["name"] = "Name must be at least 3 characters long!"
		}

		if !emailPattern.MatchString(reqData.Email) {
			errors["email"] = "A valid email is required!"
		}

		if len(reqData.Password) < 8 {
			errors["password"] = "Password must be at least 8 characters long!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRegister", reqData)
		return c.Next()
	}
}

// Login validates the login request
func Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(authControllers.LoginRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if !emailPattern.MatchString(reqData.Email) {
			errors["email"] = "A valid email is required!"
		}
		if reqData.Password == "" {
			errors["password"] = "Password is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLogin", reqData)
		return c.Next()
	}
}

// UpdateWallet validates the wallet address update request
func UpdateWallet() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(authControllers.WalletRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if !walletPattern.MatchString(reqData.WalletAddress) {
			errors["wallet_address"] = "Wallet address must be a 0x-prefixed 40-hex-digit address!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedWallet", reqData)
		return c.Next()
	}
}
