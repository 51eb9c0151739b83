package media

import (
	"context"

	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxHeroAttempts bounds retries after a concurrent designation trips the
// single-hero unique index.
const maxHeroAttempts = 2

type transactor interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// HeroSelector keeps at most one media record flagged as the site hero.
type HeroSelector struct {
	store   transactor
	metrics *metrics.Metrics
	logg    *logger.Logger
}

func NewHeroSelector(store transactor, m *metrics.Metrics, logg *logger.Logger) *HeroSelector {
	if logg == nil {
		logg = logger.Nop()
	}
	return &HeroSelector{store: store, metrics: m, logg: logg}
}

// Designate sets or clears the hero flag on mediaID. Requests to make a
// non-image the hero are downgraded to a clear.
func (h *HeroSelector) Designate(ctx context.Context, mediaID uuid.UUID, desired bool) (*models.Media, error) {
	ctx = context.WithoutCancel(ctx)

	var (
		result     *models.Media
		downgraded bool
		err        error
	)
	for attempt := 1; attempt <= maxHeroAttempts; attempt++ {
		result, downgraded, err = h.designateOnce(ctx, mediaID, desired)
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
			"media_id": mediaID.String(),
			"attempt":  attempt,
		}), "hero designation raced with another writer")
	}
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "another hero designation is in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "designate hero")
	}

	switch {
	case downgraded:
		h.metrics.ObserveHero(metrics.HeroDowngraded)
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
			"media_id": mediaID.String(),
			"kind":     string(result.Kind),
		}), "hero flag ignored for non-image media")
	case result.IsHero:
		h.metrics.ObserveHero(metrics.HeroSet)
	default:
		h.metrics.ObserveHero(metrics.HeroCleared)
	}
	return result, nil
}

func (h *HeroSelector) designateOnce(ctx context.Context, mediaID uuid.UUID, desired bool) (*models.Media, bool, error) {
	var (
		out        models.Media
		downgraded bool
	)
	err := h.store.WithTx(ctx, func(tx *gorm.DB) error {
		var candidate models.Media
		if err := tx.First(&candidate, "id = ?", mediaID).Error; err != nil {
			return err
		}

		want := desired
		if want && !candidate.HeroEligible() {
			want = false
			downgraded = true
		}

		if want {
			err := tx.Model(&models.Media{}).
				Where("is_hero = ? AND id <> ?", true, mediaID).
				Updates(map[string]any{"is_hero": false}).Error
			if err != nil {
				return err
			}
		}
		if candidate.IsHero != want {
			err := tx.Model(&models.Media{}).
				Where("id = ?", mediaID).
				Updates(map[string]any{"is_hero": want}).Error
			if err != nil {
				return err
			}
		}
		return tx.First(&out, "id = ?", mediaID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &out, downgraded, nil
}

// Hero returns the active image currently flagged as hero. If a race left more
// than one flagged, the most recently updated wins.
func (h *HeroSelector) Hero(ctx context.Context) (*models.Media, error) {
	var m models.Media
	err := h.store.DB().WithContext(ctx).
		Where("is_hero = ? AND is_active = ? AND kind = ?", true, true, enums.MediaKindImage).
		Order("updated_at DESC").
		Order("id ASC").
		Limit(1).
		Take(&m).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no hero image set")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hero")
	}
	return &m, nil
}
