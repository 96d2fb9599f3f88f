package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;not null;size:50" json:"username"`
	DisplayName string `gorm:"size:100" json:"display_name"`
	Email       string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	// empty for accounts that only sign in through an external provider
	Password       string     `gorm:"column:password_hash" json:"-"`
	Role           string     `gorm:"default:'user';not null;size:20" json:"role"`
	ProfileImageID *string    `gorm:"type:uuid" json:"profile_image_id,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// BeforeCreate hook to set UUID before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	return
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Name is what the UI shows: display name when set, username otherwise.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
