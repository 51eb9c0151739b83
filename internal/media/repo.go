package media

import (
	"context"
	"strings"

	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes media metadata persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a media record.
func (r *Repository) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// FindByID retrieves a media record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindActiveByID retrieves a published media record by ID.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateFields applies column values to one record. A missing record yields
// gorm.ErrRecordNotFound.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a media record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementCounter atomically adds one to an engagement counter of an active
// record and returns the new value. updated_at is left untouched.
func (r *Repository) IncrementCounter(ctx context.Context, id uuid.UUID, counter engagementCounter) (int64, error) {
	column := string(counter)
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Media{}).
			Where("id = ? AND is_active = ?", id, true).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Media{}).
			Select(column).
			Where("id = ?", id).
			Scan(&value).Error
	})
	return value, err
}

// List returns one page of media matching q plus the total match count.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Media, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Media{})
	if q.kind != nil {
		query = query.Where("kind = ?", *q.kind)
	}
	if q.category != nil {
		query = query.Where("category = ?", *q.category)
	}
	if q.tag != "" {
		if r.db.Dialector.Name() == "sqlite" {
			// sqlite keeps the array literal as text: {"a","b"}
			query = query.Where("tags LIKE ? "+db.LikeEscape, `%"`+db.EscapeLike(q.tag)+`"%`)
		} else {
			query = query.Where("? = ANY(tags)", q.tag)
		}
	}
	if q.featured != nil {
		query = query.Where("is_featured = ?", *q.featured)
	}
	if q.active != nil {
		query = query.Where("is_active = ?", *q.active)
	}
	if q.hero != nil {
		query = query.Where("is_hero = ?", *q.hero)
	}
	if search := strings.ToLower(strings.TrimSpace(q.search)); search != "" {
		like := db.Contains(search)
		query = query.Where("lower(title) LIKE ? "+db.LikeEscape+" OR lower(description) LIKE ? "+db.LikeEscape, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.page.Normalize()
	var rows []models.Media
	err := query.
		Order(q.sort.clause()).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type engagementCounter string

const (
	counterViews engagementCounter = "views"
	counterLikes engagementCounter = "likes"
)

type listQuery struct {
	kind     *enums.MediaKind
	category *enums.MediaCategory
	tag      string
	featured *bool
	active   *bool
	hero     *bool
	search   string
	sort     sortSpec
	page     pagination.Params
}
