package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxTags              = 20
	maxTagLength         = 50
)

var tagPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9 _-]*$`)

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	UpdateFields(ctx context.Context, id uuid.UUID, values map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q listQuery) ([]models.Media, int64, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, counter engagementCounter) (int64, error)
}

type heroDesignator interface {
	Designate(ctx context.Context, mediaID uuid.UUID, desired bool) (*models.Media, error)
	Hero(ctx context.Context) (*models.Media, error)
}

// Service exposes media catalogue operations for admins and visitors.
type Service interface {
	List(ctx context.Context, params ListParams) (*types.PagedResult[MediaDTO], error)
	ListPublic(ctx context.Context, params ListParams) (*types.PagedResult[PublicMediaDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*MediaDTO, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*PublicMediaDTO, error)
	Upload(ctx context.Context, actorID uuid.UUID, input UploadFileInput) (*MediaDTO, error)
	RegisterURL(ctx context.Context, actorID uuid.UUID, input RegisterURLInput) (*MediaDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*MediaDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetHero(ctx context.Context, id uuid.UUID, isHero bool) (*MediaDTO, error)
	Hero(ctx context.Context) (*MediaDTO, error)
	PublicHero(ctx context.Context) (*PublicMediaDTO, error)
	Like(ctx context.Context, id uuid.UUID) (*EngagementDTO, error)
}

type ServiceParams struct {
	Repo   mediaRepository
	Hero   heroDesignator
	Blobs  BlobStore
	Config config.MediaConfig
	Logger *logger.Logger
}

type service struct {
	repo  mediaRepository
	hero  heroDesignator
	blobs BlobStore
	cfg   config.MediaConfig
	logg  *logger.Logger
}

// NewService constructs a media service backed by the provided repository,
// hero selector and blob store.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Hero == nil {
		return nil, fmt.Errorf("hero selector required")
	}
	if params.Blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:  params.Repo,
		hero:  params.Hero,
		blobs: params.Blobs,
		cfg:   params.Config,
		logg:  logg,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MediaDTO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(m), nil
}

// GetPublic returns an active record and counts the view.
func (s *service) GetPublic(ctx context.Context, id uuid.UUID) (*PublicMediaDTO, error) {
	m, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	views, err := s.repo.IncrementCounter(context.WithoutCancel(ctx), id, counterViews)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "media_id", id.String()), "count media view", err)
	} else {
		m.Views = views
	}
	return PublicFromModel(m), nil
}

func (s *service) Upload(ctx context.Context, actorID uuid.UUID, input UploadFileInput) (*MediaDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	meta, err := normalizeMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}

	mimeType, err := normalizeMimeType(input.ContentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file content type is invalid")
	}
	kind, ok := enums.MediaKindFromMIME(mimeType)
	if !ok || !isAllowedMime(kind, mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported file type %q", mimeType))
	}
	size := int64(len(input.Data))
	if size == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if limit := s.cfg.MaxBytes(kind == enums.MediaKindVideo); limit > 0 && size > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s files must be at most %d MB", kind, limit/(1024*1024)))
	}

	stored, err := s.blobs.Upload(ctx, UploadInput{
		Kind:        kind,
		FileName:    sanitizeFileName(input.FileName),
		ContentType: mimeType,
		Data:        input.Data,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "asset upload failed")
	}

	record := meta.record(actorID)
	record.Kind = kind
	record.URL = stored.URL
	record.StorageID = &stored.PublicID
	record.MimeType = mimeType
	record.SizeBytes = size
	if stored.ThumbnailURL != "" {
		record.ThumbnailURL = &stored.ThumbnailURL
	}
	if stored.Width > 0 && stored.Height > 0 {
		record.Width, record.Height = &stored.Width, &stored.Height
	}

	ctx = context.WithoutCancel(ctx)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if cleanupErr := s.blobs.Delete(ctx, stored.PublicID); cleanupErr != nil {
			s.logg.Error(s.logg.WithField(ctx, "public_id", stored.PublicID), "remove orphaned asset", cleanupErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save media")
	}
	return s.finishCreate(ctx, created, meta.isHero)
}

func (s *service) RegisterURL(ctx context.Context, actorID uuid.UUID, input RegisterURLInput) (*MediaDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	meta, err := normalizeMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}
	assetURL, err := normalizeAssetURL(input.URL, "url")
	if err != nil {
		return nil, err
	}
	kind, err := enums.ParseMediaKind(input.Kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "kind must be image or video")
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		mimeType = mimeFromURL(assetURL)
	} else {
		if mimeType, err = normalizeMimeType(mimeType); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mime_type is invalid")
		}
		if !isAllowedMime(kind, mimeType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s media must be %s", kind, allowedMimeDescription(kind)))
		}
	}

	record := meta.record(actorID)
	record.Kind = kind
	record.URL = assetURL
	record.MimeType = mimeType
	record.Width = positive(input.Width)
	record.Height = positive(input.Height)
	if raw := strings.TrimSpace(input.ThumbnailURL); raw != "" {
		thumb, err := normalizeAssetURL(raw, "thumbnail_url")
		if err != nil {
			return nil, err
		}
		record.ThumbnailURL = &thumb
	}

	ctx = context.WithoutCancel(ctx)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save media")
	}
	return s.finishCreate(ctx, created, meta.isHero)
}

func (s *service) finishCreate(ctx context.Context, created *models.Media, isHero bool) (*MediaDTO, error) {
	if !isHero {
		return FromModel(created), nil
	}
	updated, err := s.hero.Designate(ctx, created.ID, true)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*MediaDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	values, err := updateValues(input)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.repo.UpdateFields(ctx, id, values); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update media")
	}
	if input.IsHero != nil {
		updated, err := s.hero.Designate(ctx, id, *input.IsHero)
		if err != nil {
			return nil, err
		}
		return FromModel(updated), nil
	}
	return s.Get(ctx, id)
}

// Delete removes the record. Asset removal is best effort.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	m, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media")
	}
	if m.StorageID != nil && *m.StorageID != "" {
		if err := s.blobs.Delete(ctx, *m.StorageID); err != nil {
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{
				"media_id":  id.String(),
				"public_id": *m.StorageID,
			}), "remove media asset", err)
		}
	}
	return nil
}

func (s *service) SetHero(ctx context.Context, id uuid.UUID, isHero bool) (*MediaDTO, error) {
	updated, err := s.hero.Designate(ctx, id, isHero)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Hero(ctx context.Context) (*MediaDTO, error) {
	m, err := s.hero.Hero(ctx)
	if err != nil {
		return nil, err
	}
	return FromModel(m), nil
}

func (s *service) PublicHero(ctx context.Context) (*PublicMediaDTO, error) {
	m, err := s.hero.Hero(ctx)
	if err != nil {
		return nil, err
	}
	return PublicFromModel(m), nil
}

func (s *service) Like(ctx context.Context, id uuid.UUID) (*EngagementDTO, error) {
	likes, err := s.repo.IncrementCounter(context.WithoutCancel(ctx), id, counterLikes)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return &EngagementDTO{ID: id, Likes: likes}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return m, nil
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
}

type normalizedMetadata struct {
	title       string
	description string
	category    enums.MediaCategory
	tags        pq.StringArray
	isActive    bool
	isFeatured  bool
	isHero      bool
}

func (m normalizedMetadata) record(actorID uuid.UUID) *models.Media {
	return &models.Media{
		Title:       m.title,
		Description: m.description,
		Category:    m.category,
		Tags:        m.tags,
		IsActive:    m.isActive,
		IsFeatured:  m.isFeatured,
		UploadedBy:  actorID,
	}
}

func normalizeMetadata(in Metadata) (normalizedMetadata, error) {
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return normalizedMetadata{}, err
	}
	description, err := normalizeDescription(in.Description)
	if err != nil {
		return normalizedMetadata{}, err
	}
	category := enums.MediaCategoryOther
	if strings.TrimSpace(in.Category) != "" {
		if category, err = enums.ParseMediaCategory(in.Category); err != nil {
			return normalizedMetadata{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category is invalid")
		}
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return normalizedMetadata{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return normalizedMetadata{
		title:       title,
		description: description,
		category:    category,
		tags:        tags,
		isActive:    active,
		isFeatured:  in.IsFeatured,
		isHero:      in.IsHero,
	}, nil
}

func updateValues(input UpdateInput) (map[string]any, error) {
	values := map[string]any{}
	if input.Title != nil {
		title, err := normalizeTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		values["title"] = title
	}
	if input.Description != nil {
		description, err := normalizeDescription(*input.Description)
		if err != nil {
			return nil, err
		}
		values["description"] = description
	}
	if input.Category != nil {
		category, err := enums.ParseMediaCategory(*input.Category)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category is invalid")
		}
		values["category"] = category
	}
	if input.Tags != nil {
		tags, err := normalizeTags(*input.Tags)
		if err != nil {
			return nil, err
		}
		values["tags"] = tags
	}
	if input.IsActive != nil {
		values["is_active"] = *input.IsActive
	}
	if input.IsFeatured != nil {
		values["is_featured"] = *input.IsFeatured
	}
	return values, nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	return title, nil
}

func normalizeDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	return description, nil
}

// normalizeTags trims, lower-cases and de-duplicates tags, keeping first
// occurrence order.
func normalizeTags(raw []string) (pq.StringArray, error) {
	tags := make(pq.StringArray, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		tag, err := normalizeTag(value)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d tags are allowed", maxTags))
	}
	return tags, nil
}

func normalizeTag(raw string) (string, error) {
	tag := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if tag == "" || utf8.RuneCountInString(tag) > maxTagLength || !tagPattern.MatchString(tag) {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("tag %q must be 1-%d letters, digits, spaces, '-' or '_'", strings.TrimSpace(raw), maxTagLength)).
			WithDetails(map[string]any{"tag": raw})
	}
	return tag, nil
}

func normalizeAssetURL(raw, field string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
	}
	u, err := url.Parse(value)
	if err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != "" {
		return u.String(), nil
	}
	if err == nil {
		err = errors.New("absolute http(s) url required")
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be an absolute http(s) url")
}

func mimeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for mimeType, known := range extensionsByMime {
		if known == ext {
			return mimeType
		}
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if normalized, err := normalizeMimeType(byExt); err == nil {
			return normalized
		}
	}
	return ""
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}
