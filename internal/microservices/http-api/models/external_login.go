package models

import "time"

// ExternalLogin links a local user to an account at an OAuth provider.
type ExternalLogin struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider       string    `gorm:"not null;size:50;uniqueIndex:idx_external_logins_provider_subject" json:"provider"`
	ProviderUserID string    `gorm:"not null;size:255;uniqueIndex:idx_external_logins_provider_subject" json:"provider_user_id"`
	UserID         string    `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
}

func (ExternalLogin) TableName() string {
	return "external_logins"
}
