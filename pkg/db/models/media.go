package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/folio-backend/pkg/enums"
)

// Media is a portfolio asset hosted by the blob store.
type Media struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title        string              `gorm:"column:title;not null"`
	Description  string              `gorm:"column:description;not null"`
	Kind         enums.MediaKind     `gorm:"column:kind;not null"`
	URL          string              `gorm:"column:url;not null"`
	ThumbnailURL *string             `gorm:"column:thumbnail_url"`
	StorageID    *string             `gorm:"column:storage_id"`
	Category     enums.MediaCategory `gorm:"column:category;not null"`
	Tags         pq.StringArray      `gorm:"column:tags;type:text[];not null"`
	IsActive     bool                `gorm:"column:is_active;not null"`
	IsFeatured   bool                `gorm:"column:is_featured;not null"`
	IsHero       bool                `gorm:"column:is_hero;not null"`
	MimeType     string              `gorm:"column:mime_type;not null"`
	SizeBytes    int64               `gorm:"column:size_bytes;not null"`
	Width        *int                `gorm:"column:width"`
	Height       *int                `gorm:"column:height"`
	UploadedBy   uuid.UUID           `gorm:"column:uploaded_by;type:uuid;not null"`
	Views        int64               `gorm:"column:views;not null"`
	Likes        int64               `gorm:"column:likes;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Media) TableName() string { return "media" }

func (m *Media) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Tags == nil {
		m.Tags = pq.StringArray{}
	}
	return nil
}

// HeroEligible reports whether the record may carry the hero flag.
func (m *Media) HeroEligible() bool {
	return m != nil && m.Kind == enums.MediaKindImage
}
