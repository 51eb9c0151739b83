package media

import (
	"time"

	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/google/uuid"
)

// MediaDTO is the admin view of a media record.
type MediaDTO struct {
	ID           uuid.UUID           `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Kind         enums.MediaKind     `json:"kind"`
	URL          string              `json:"url"`
	ThumbnailURL *string             `json:"thumbnail_url,omitempty"`
	StorageID    *string             `json:"storage_id,omitempty"`
	Category     enums.MediaCategory `json:"category"`
	Tags         []string            `json:"tags"`
	IsActive     bool                `json:"is_active"`
	IsFeatured   bool                `json:"is_featured"`
	IsHero       bool                `json:"is_hero"`
	MimeType     string              `json:"mime_type"`
	SizeBytes    int64               `json:"size_bytes"`
	Width        *int                `json:"width,omitempty"`
	Height       *int                `json:"height,omitempty"`
	UploadedBy   uuid.UUID           `json:"uploaded_by"`
	Views        int64               `json:"views"`
	Likes        int64               `json:"likes"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func FromModel(m *models.Media) *MediaDTO {
	if m == nil {
		return nil
	}
	return &MediaDTO{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Kind:         m.Kind,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		StorageID:    m.StorageID,
		Category:     m.Category,
		Tags:         tagsOf(m),
		IsActive:     m.IsActive,
		IsFeatured:   m.IsFeatured,
		IsHero:       m.IsHero,
		MimeType:     m.MimeType,
		SizeBytes:    m.SizeBytes,
		Width:        m.Width,
		Height:       m.Height,
		UploadedBy:   m.UploadedBy,
		Views:        m.Views,
		Likes:        m.Likes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// PublicMediaDTO is what visitors of the portfolio see.
type PublicMediaDTO struct {
	ID           uuid.UUID           `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Kind         enums.MediaKind     `json:"kind"`
	URL          string              `json:"url"`
	ThumbnailURL *string             `json:"thumbnail_url,omitempty"`
	Category     enums.MediaCategory `json:"category"`
	Tags         []string            `json:"tags"`
	IsFeatured   bool                `json:"is_featured"`
	IsHero       bool                `json:"is_hero"`
	Width        *int                `json:"width,omitempty"`
	Height       *int                `json:"height,omitempty"`
	Views        int64               `json:"views"`
	Likes        int64               `json:"likes"`
	CreatedAt    time.Time           `json:"created_at"`
}

func PublicFromModel(m *models.Media) *PublicMediaDTO {
	if m == nil {
		return nil
	}
	return &PublicMediaDTO{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Kind:         m.Kind,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Category:     m.Category,
		Tags:         tagsOf(m),
		IsFeatured:   m.IsFeatured,
		IsHero:       m.IsHero,
		Width:        m.Width,
		Height:       m.Height,
		Views:        m.Views,
		Likes:        m.Likes,
		CreatedAt:    m.CreatedAt,
	}
}

func tagsOf(m *models.Media) []string {
	if len(m.Tags) == 0 {
		return []string{}
	}
	return append([]string(nil), m.Tags...)
}

// Metadata carries the descriptive fields shared by upload and URL
// registration.
type Metadata struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	IsActive    *bool
	IsFeatured  bool
	IsHero      bool
}

// UploadFileInput is a multipart upload received from an admin.
type UploadFileInput struct {
	Metadata
	FileName    string
	ContentType string
	Data        []byte
}

// RegisterURLInput registers an asset already hosted elsewhere.
type RegisterURLInput struct {
	Metadata
	URL          string
	ThumbnailURL string
	Kind         string
	MimeType     string
	Width        *int
	Height       *int
}

// UpdateInput applies only the non-nil fields. Tags replace the stored set.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Tags        *[]string
	IsActive    *bool
	IsFeatured  *bool
	IsHero      *bool
}

// EngagementDTO reports a counter after it was bumped.
type EngagementDTO struct {
	ID    uuid.UUID `json:"id"`
	Likes int64     `json:"likes"`
}
