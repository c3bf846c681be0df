package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserView  `json:"user"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
	Name       string   `json:"name"`
	Role       UserRole `json:"role"`
	ClassGrade string   `json:"classGrade"`
	jwt.RegisteredClaims
}

// View projects the claims into the user info returned by /auth/me.
func (c *JWTClaims) View() UserView {
	return UserView{ID: c.UserID, Username: c.Username, Name: c.Name, Role: c.Role, ClassGrade: c.ClassGrade}
}
