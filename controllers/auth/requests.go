package controllers

import "time"

// RegisterRequest is the validated body of POST /auth/register
type RegisterRequest struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Mobile   string     `json:"mobile"`
	Password string     `json:"password"`
	DOB      *time.Time `json:"dob"`
	IDCard   string     `json:"idcard"`
}

// LoginRequest is the validated body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// WalletRequest is the validated body of PATCH /user/wallet
type WalletRequest struct {
	WalletAddress string `json:"wallet_address"`
}
