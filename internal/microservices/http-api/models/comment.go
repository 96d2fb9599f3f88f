package models

import "time"

const MaxCommentLength = 1000

type Comment struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        string    `json:"user_id" gorm:"type:uuid;not null;index"`
	ApplicationID int64     `json:"application_id" gorm:"not null;index"`
	Content       string    `json:"content" gorm:"not null;type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Associations
	User        *User        `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Application *Application `json:"-" gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE;"`
}

func (Comment) TableName() string {
	return "comments"
}
