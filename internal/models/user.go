package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is read from the identity provider; this service never writes it.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	AvatarURL *string `json:"avatar_url"`

	// Preferences
	PrefersHighContrast bool `json:"prefers_high_contrast"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsSiteAdmin() bool { return u != nil && u.Role == RoleAdmin }
