package dto

import (
	"strconv"
	"time"

	"appgambit/internal/microservices/http-api/models"
)

// ApplicationQuery is the catalog listing query: GET /?search&category&tag&sort&page&page_size
type ApplicationQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Tag      string `form:"tag"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ApplicationInput carries the form fields of create and edit.
// Tags nil on edit means "unchanged".
type ApplicationInput struct {
	Name                string   `form:"name" json:"name"`
	Description         string   `form:"description" json:"description"`
	DetailedDescription string   `form:"detailed_description" json:"detailed_description"`
	Version             string   `form:"version" json:"version"`
	Category            string   `form:"category" json:"category"`
	DownloadURL         string   `form:"download_url" json:"download_url"`
	Tags                []string `form:"tags" json:"tags"`
	RemoveScreenshotIDs []string `form:"remove_screenshots" json:"remove_screenshots"`
}

// OwnerResponse is the public view of an application's owner.
type OwnerResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// ApplicationSummary is one row of a listing.
type ApplicationSummary struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	Version       string               `json:"version"`
	Category      string               `json:"category"`
	Tags          []string             `json:"tags"`
	DownloadCount int64                `json:"download_count"`
	IconURL       string               `json:"icon_url,omitempty"`
	Owner         *OwnerResponse       `json:"owner,omitempty"`
	Rating        models.RatingSummary `json:"rating"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ScreenshotResponse points at a stored screenshot.
type ScreenshotResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// ApplicationDetail is the detail page payload.
type ApplicationDetail struct {
	ApplicationSummary
	DetailedDescription string               `json:"detailed_description"`
	DownloadURL         string               `json:"download_url,omitempty"`
	FileSize            int64                `json:"file_size"`
	HasFile             bool                 `json:"has_file"`
	Screenshots         []ScreenshotResponse `json:"screenshots"`
	CommentCount        int64                `json:"comment_count"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ApplicationResponse is returned by create and edit.
type ApplicationResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	IconID      *string   `json:"icon_id,omitempty"`
	AppFileID   *string   `json:"app_file_id,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NameCount is a label with a count, used for categories and tags.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

func IconURL(a *models.Application) string {
	if a.IconID == nil {
		return ""
	}
	return "/Image/Icon/" + strconv.FormatInt(a.ID, 10)
}

func ImageURL(id string) string {
	return "/Image/" + id
}

func FromUserToOwner(u *models.User) *OwnerResponse {
	if u == nil {
		return nil
	}
	return &OwnerResponse{ID: u.ID, Username: u.Username, DisplayName: u.Name()}
}

// FromModelToSummary converts an Application; rating is filled by the caller.
func FromModelToSummary(a *models.Application, rating models.RatingSummary) ApplicationSummary {
	tags := a.TagNames()
	return ApplicationSummary{
		ID:            a.ID,
		Name:          a.Name,
		Description:   a.Description,
		Version:       a.Version,
		Category:      a.Category,
		Tags:          tags,
		DownloadCount: a.DownloadCount,
		IconURL:       IconURL(a),
		Owner:         FromUserToOwner(a.User),
		Rating:        rating,
		CreatedAt:     a.CreatedAt,
	}
}

func FromModelToApplicationResponse(a *models.Application) *ApplicationResponse {
	return &ApplicationResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Version:     a.Version,
		Category:    a.Category,
		Tags:        a.TagNames(),
		IconID:      a.IconID,
		AppFileID:   a.AppFileID,
		DownloadURL: a.DownloadURL,
		FileSize:    a.FileSize,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
