package enums

import (
	"fmt"
	"strings"
)

// MediaKind distinguishes still images from video assets.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

var validMediaKinds = []MediaKind{
	MediaKindImage,
	MediaKindVideo,
}

// String returns the literal string for the kind.
func (m MediaKind) String() string {
	return string(m)
}

// IsValid reports whether the kind is known.
func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaKind converts raw input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validMediaKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}

// MediaKindFromMIME maps a content type onto a kind.
func MediaKindFromMIME(mime string) (MediaKind, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaKindImage, true
	case strings.HasPrefix(mime, "video/"):
		return MediaKindVideo, true
	default:
		return "", false
	}
}
