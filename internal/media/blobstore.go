package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/breaker"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
	"github.com/angelmondragon/folio-backend/pkg/storage/gcs"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// UploadInput is an asset handed to the blob store.
type UploadInput struct {
	Kind        enums.MediaKind
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult describes a stored asset. Width and Height are zero when the
// asset could not be decoded.
type UploadResult struct {
	URL          string
	ThumbnailURL string
	PublicID     string
	Width        int
	Height       int
}

// BlobStore hosts media assets.
type BlobStore interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

type objectStore interface {
	UploadObject(ctx context.Context, object, contentType string, body io.Reader) (*gcs.Object, error)
	DeleteObject(ctx context.Context, object string) error
	PublicURL(object string) string
}

// thumbnail extensions probed on delete so a format change never strands
// previews written under the previous setting.
var thumbnailExtensions = []string{".jpg", ".png"}

// GCSBlobStore stores assets in a Cloud Storage bucket and writes a scaled
// preview next to every image.
type GCSBlobStore struct {
	objects objectStore
	thumbs  *Thumbnailer
	prefix  string
	breaker *breaker.Breaker
	metrics *metrics.Metrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewGCSBlobStore wires the blob store. A nil thumbnailer disables previews.
func NewGCSBlobStore(objects objectStore, thumbs *Thumbnailer, prefix string, m *metrics.Metrics, logg *logger.Logger) (*GCSBlobStore, error) {
	if objects == nil {
		return nil, errors.New("object store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &GCSBlobStore{
		objects: objects,
		thumbs:  thumbs,
		prefix:  strings.Trim(strings.TrimSpace(prefix), "/"),
		breaker: breaker.New(breaker.Settings{Name: "blob"}, logg),
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *GCSBlobStore) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if len(input.Data) == 0 {
		return nil, errors.New("asset is empty")
	}
	object := s.objectName(input.Kind, uuid.New(), extensionFor(input.ContentType, input.FileName))
	result := &UploadResult{PublicID: object}

	var thumb *Thumbnail
	if input.Kind == enums.MediaKindImage && s.thumbs != nil {
		generated, info, err := s.thumbs.Generate(input.Data)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"object": object,
				"error":  err.Error(),
			}), "thumbnail skipped")
		} else {
			thumb = generated
			result.Width, result.Height = info.Width, info.Height
		}
	}

	if err := s.put(ctx, "upload", object, input.ContentType, input.Data); err != nil {
		return nil, err
	}
	result.URL = s.objects.PublicURL(object)

	if thumb != nil {
		thumbObject := thumbnailObject(object, thumb.Extension)
		if err := s.put(ctx, "upload_thumbnail", thumbObject, thumb.ContentType, thumb.Data); err != nil {
			if cleanupErr := s.remove(context.WithoutCancel(ctx), object); cleanupErr != nil {
				s.logg.Error(s.logg.WithField(ctx, "object", object), "remove asset after thumbnail failure", cleanupErr)
			}
			return nil, err
		}
		result.ThumbnailURL = s.objects.PublicURL(thumbObject)
	}
	return result, nil
}

// Delete removes an asset and any preview stored beside it.
func (s *GCSBlobStore) Delete(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return errors.New("public id required")
	}
	err := s.remove(ctx, publicID)
	for _, ext := range thumbnailExtensions {
		err = multierr.Append(err, s.remove(ctx, thumbnailObject(publicID, ext)))
	}
	return err
}

func (s *GCSBlobStore) put(ctx context.Context, op, object, contentType string, data []byte) error {
	started := time.Now()
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := s.objects.UploadObject(ctx, object, contentType, bytes.NewReader(data))
		return err
	})
	s.metrics.ObserveUpstream("blob", op, err, time.Since(started))
	if err != nil {
		return fmt.Errorf("store %s: %w", object, err)
	}
	return nil
}

func (s *GCSBlobStore) remove(ctx context.Context, object string) error {
	started := time.Now()
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.objects.DeleteObject(ctx, object)
	})
	s.metrics.ObserveUpstream("blob", "delete", err, time.Since(started))
	if err != nil {
		return fmt.Errorf("delete %s: %w", object, err)
	}
	return nil
}

// objectName lays assets out as <prefix>/<kind>/<yyyy>/<mm>/<uuid><ext>.
func (s *GCSBlobStore) objectName(kind enums.MediaKind, id uuid.UUID, ext string) string {
	parts := make([]string, 0, 4)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	parts = append(parts, string(kind), s.now().UTC().Format("2006/01"), id.String()+ext)
	return path.Join(parts...)
}

func thumbnailObject(object, ext string) string {
	base := path.Base(object)
	base = strings.TrimSuffix(base, path.Ext(base))
	return path.Join(path.Dir(object), "thumbs", base+ext)
}
