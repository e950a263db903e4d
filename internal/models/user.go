package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a user can hold. Role decides which screen the client shows.
const (
	RoleWorker  = "worker"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r string) bool {
	switch r {
	case RoleWorker, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an account that can sign in
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type User struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	Name      string     `json:"name"`
	PhotoURL  string     `json:"photoURL,omitempty"`
	Role      string     `gorm:"default:'worker';not null" json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an id when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleWorker
	}
	return nil
}

// LogIn is appended on every successful sign-in
type LogIn struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"type:uuid;index;not null" json:"userId"`
	LogInDateTime time.Time `gorm:"not null" json:"logInDateTime"`
}

// TableName specifies the table name for LogIn model
func (LogIn) TableName() string {
	return "log_ins"
}
