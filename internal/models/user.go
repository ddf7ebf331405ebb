package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// Roles a marketplace user can hold
const (
	RoleClient = "client"
	RoleTalent = "talent"
	RoleAdmin  = "admin"
)

type User struct {
	gorm.Model
	Name        string  `json:"name"`
	Email       string  `json:"email" gorm:"uniqueIndex"`
	Role        string  `json:"role" gorm:"size:10;default:'client';index"`
	Password    string  `json:"-"` // bcrypt hash
	FirebaseUID *string `json:"firebase_uid,omitempty" gorm:"uniqueIndex"`
}

// PublicID is the string form of the user id used across the marketplace records
func (u *User) PublicID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}

// UserCompact is the subset of a user embedded in other payloads
type UserCompact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.PublicID(), Name: u.Name, Role: u.Role}
}

type CreateLocalUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=client talent"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
	Role    string `json:"role" validate:"omitempty,oneof=client talent"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
