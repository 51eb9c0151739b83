package media

import (
	"context"
	"testing"

	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func seedOwner(t *testing.T, client *db.Client) uuid.UUID {
	t.Helper()
	admin := &models.Admin{
		Username:     "owner",
		Email:        "owner@folio.test",
		PasswordHash: "not-a-real-hash",
		Role:         enums.AdminRoleSuperadmin,
		IsActive:     true,
	}
	require.NoError(t, client.DB().Create(admin).Error)
	return admin.ID
}

type mediaSeed struct {
	title    string
	kind     enums.MediaKind
	category enums.MediaCategory
	tags     []string
	inactive bool
	featured bool
	views    int64
}

func seed(t *testing.T, client *db.Client, owner uuid.UUID, s mediaSeed) *models.Media {
	t.Helper()
	if s.kind == "" {
		s.kind = enums.MediaKindImage
	}
	if s.category == "" {
		s.category = enums.MediaCategoryOther
	}
	m := &models.Media{
		Title:      s.title,
		Kind:       s.kind,
		URL:        "https://cdn.folio.test/" + uuid.NewString(),
		Category:   s.category,
		Tags:       pq.StringArray(s.tags),
		IsActive:   !s.inactive,
		IsFeatured: s.featured,
		Views:      s.views,
		UploadedBy: owner,
	}
	require.NoError(t, client.DB().Create(m).Error)
	return m
}

func heroCount(t *testing.T, client *db.Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&models.Media{}).Where("is_hero = ?", true).Count(&n).Error)
	return n
}

func reload(t *testing.T, client *db.Client, id uuid.UUID) *models.Media {
	t.Helper()
	var m models.Media
	require.NoError(t, client.DB().WithContext(context.Background()).First(&m, "id = ?", id).Error)
	return &m
}
