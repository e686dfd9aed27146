package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterAccountRequest creates an API account bound to a ledger address.
type RegisterAccountRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Address  string `json:"address" validate:"required"`
}

// LoginRequest holds credentials for authenticating a caller.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and account info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Account     UserInfo  `json:"account"`
}

// UserInfo describes the authenticated account in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Address  string `json:"address"`
}

// JWTClaims is the access token payload. Address is the caller identity
// every ledger authorization check runs against.
type JWTClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Address string `json:"address"`
	jwt.RegisteredClaims
}
