package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the role carried by tokens from the identity service.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleOrganizer UserRole = "ORGANIZER"
	RoleStaff     UserRole = "STAFF"
)

// JWTClaims represents the verified access token payload.
type JWTClaims struct {
	UserID string   `json:"user_id,omitempty"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
