// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// User is a back-office account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PasswordHash string       `json:"-"`
	Role         string       `json:"role"`
	IsActive     bool         `json:"is_active"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "admin_users" }

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID snowflake.ID
	Email  string
	Role   string
}
