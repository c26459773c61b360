package controllers

import (
	"time"

	"certmint/config"
	"certmint/database"
	"certmint/middleware"
	"certmint/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a learner account
func Register(c *fiber.Ctx) error {
	req := c.Locals("validatedRegister").(*RegisterRequest)

	var existing models.User
	if err := database.Database.Db.Where("email = ? AND is_deleted = ?", req.Email, false).First(&existing).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email already registered!", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), config.AppConfig.SaltRound)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process password!", nil)
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: string(hashed),
		DOB:      req.DOB,
		IDCard:   req.IDCard,
	}
	if err := database.Database.Db.Create(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create user!", nil)
	}

	user.Password = ""
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Registration successful!", user)
}

// Login authenticates a user and returns a JWT
func Login(c *fiber.Ctx) error {
	req := c.Locals("validatedLogin").(*LoginRequest)

	var user models.User
	if err := database.Database.Db.Where("email = ? AND is_deleted = ?", req.Email, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password!", nil)
	}

	if user.IsBlocked && user.BlockedUntil != nil && user.BlockedUntil.After(time.Now()) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Account temporarily blocked. Try again later!", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		now := time.Now()
		user.FailedLoginAttempts++
		user.LastFailedLogin = &now
		if user.FailedLoginAttempts >= 5 {
			until := now.Add(30 * time.Minute)
			user.IsBlocked = true
			user.BlockedUntil = &until
		}
		database.Database.Db.Save(&user)
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password!", nil)
	}

	user.FailedLoginAttempts = 0
	user.IsBlocked = false
	user.BlockedUntil = nil
	user.LastLogin = time.Now()
	database.Database.Db.Save(&user)

	token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	user.Password = ""
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful!", fiber.Map{
		"token": token,
		"user":  user,
	})
}

// UpdateWallet sets the learner's wallet address. Changing the address
// clears the verified flag until an admin confirms it.
func UpdateWallet(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	req := c.Locals("validatedWallet").(*WalletRequest)

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	user.WalletAddress = req.WalletAddress
	user.IsWalletVerified = false
	if err := database.Database.Db.Save(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update wallet!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Wallet updated. Awaiting verification!", fiber.Map{
		"wallet_address": user.WalletAddress,
	})
}

// VerifyWallet lets an admin confirm a learner's wallet address
func VerifyWallet(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid user id!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}
	if user.WalletAddress == "" {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "User has no wallet address to verify!", nil)
	}

	user.IsWalletVerified = true
	if err := database.Database.Db.Save(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to verify wallet!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Wallet verified!", fiber.Map{
		"user_id":        user.ID,
		"wallet_address": user.WalletAddress,
	})
}
