package models

import "time"

const (
	MaxApplicationNameLength        = 100
	MaxApplicationDescriptionLength = 500
	MaxApplicationVersionLength     = 50
	MaxApplicationCategoryLength    = 100
)

// Application is a published, downloadable piece of software.
// IconID and AppFileID point at rows in images without a foreign key; the
// blob repository clears them when the blob goes away.
type Application struct {
	ID                  int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name                string    `json:"name" gorm:"not null;size:100;index"`
	Description         string    `json:"description" gorm:"size:500"`
	DetailedDescription string    `json:"detailed_description" gorm:"type:text"`
	Version             string    `json:"version" gorm:"size:50"`
	Category            string    `json:"category" gorm:"size:100;index"`
	DownloadURL         string    `json:"download_url" gorm:"size:2048"`
	FileSize            int64     `json:"file_size" gorm:"not null;default:0"`
	DownloadCount       int64     `json:"download_count" gorm:"not null;default:0"`
	UserID              *string   `json:"user_id,omitempty" gorm:"type:uuid;index"`
	IconID              *string   `json:"icon_id,omitempty" gorm:"type:uuid"`
	AppFileID           *string   `json:"app_file_id,omitempty" gorm:"type:uuid"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Associations
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;"`
	Tags []Tag `json:"tags,omitempty" gorm:"many2many:application_tags;constraint:OnDelete:CASCADE;"`
}

func (Application) TableName() string {
	return "applications"
}

// OwnedBy reports whether userID is the recorded owner.
func (a *Application) OwnedBy(userID string) bool {
	return a.UserID != nil && *a.UserID == userID
}

// TagNames returns the tag names in stored order.
func (a *Application) TagNames() []string {
	names := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		names = append(names, t.Name)
	}
	return names
}
