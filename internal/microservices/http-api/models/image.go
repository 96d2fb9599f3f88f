package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Blob kinds.
const (
	KindIcon       = "icon"
	KindScreenshot = "screenshot"
	KindProfile    = "profile"
	KindAppFile    = "appfile"
)

// ImageData is a stored binary object: an image or an application package.
// Bytes live in Data, or in object storage under StorageKey.
type ImageData struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	FileName      string    `gorm:"size:255" json:"file_name"`
	ContentType   string    `gorm:"size:100;not null" json:"content_type"`
	Data          []byte    `json:"-"`
	StorageKey    string    `gorm:"size:512" json:"-"`
	Size          int64     `gorm:"not null" json:"size"`
	Width         *int      `json:"width,omitempty"`
	Height        *int      `json:"height,omitempty"`
	Kind          string    `gorm:"size:20;not null;index" json:"kind"`
	ApplicationID *int64    `gorm:"index" json:"application_id,omitempty"`
	UserID        *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (img *ImageData) BeforeCreate(tx *gorm.DB) error {
	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	return nil
}

func (ImageData) TableName() string {
	return "images"
}

// External reports whether the bytes live in object storage.
func (img *ImageData) External() bool {
	return img.StorageKey != ""
}
