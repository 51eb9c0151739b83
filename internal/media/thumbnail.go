package media

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	// registers the WebP decoder with image.Decode
	_ "golang.org/x/image/webp"

	"github.com/angelmondragon/folio-backend/pkg/config"
)

// Thumbnail is a derived preview image.
type Thumbnail struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ImageInfo describes a decoded source image.
type ImageInfo struct {
	Width  int
	Height int
}

// Thumbnailer scales source images to fit within a bounding box.
type Thumbnailer struct {
	width   int
	height  int
	format  imaging.Format
	quality int
}

func NewThumbnailer(cfg config.MediaConfig) *Thumbnailer {
	t := &Thumbnailer{
		width:   cfg.ThumbnailWidth,
		height:  cfg.ThumbnailHeight,
		format:  imaging.JPEG,
		quality: 82,
	}
	if t.width <= 0 {
		t.width = 400
	}
	if t.height <= 0 {
		t.height = 300
	}
	if strings.EqualFold(strings.TrimSpace(cfg.ThumbnailFormat), "png") {
		t.format = imaging.PNG
	}
	return t
}

// Generate decodes data, honoring EXIF orientation, and returns the source
// dimensions together with a scaled copy.
func (t *Thumbnailer) Generate(data []byte) (*Thumbnail, ImageInfo, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	info := ImageInfo{Width: bounds.Dx(), Height: bounds.Dy()}

	var scaled image.Image = src
	if info.Width > t.width || info.Height > t.height {
		scaled = imaging.Fit(src, t.width, t.height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, t.format, imaging.JPEGQuality(t.quality)); err != nil {
		return nil, info, fmt.Errorf("encode thumbnail: %w", err)
	}

	thumb := &Thumbnail{Data: buf.Bytes(), ContentType: "image/jpeg", Extension: ".jpg"}
	if t.format == imaging.PNG {
		thumb.ContentType = "image/png"
		thumb.Extension = ".png"
	}
	return thumb, info, nil
}
