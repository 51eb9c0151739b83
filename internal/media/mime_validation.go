package media

import (
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/angelmondragon/folio-backend/pkg/enums"
)

type mimeGroup string

const (
	mimeGroupImages mimeGroup = "images"
	mimeGroupVideos mimeGroup = "videos"
)

var mimeGroupNames = map[mimeGroup]string{
	mimeGroupImages: "JPEG, PNG, WebP or GIF images",
	mimeGroupVideos: "MP4, WebM or QuickTime videos",
}

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/jpeg", "image/png", "image/webp", "image/gif"},
	mimeGroupVideos: {"video/mp4", "video/webm", "video/quicktime"},
}

var allowedMimeGroupsByKind = map[enums.MediaKind][]mimeGroup{
	enums.MediaKindImage: {mimeGroupImages},
	enums.MediaKindVideo: {mimeGroupVideos},
}

var (
	mimeTypesByKind        = buildMimeTypesByKind()
	mimeDescriptionsByKind = buildMimeDescriptions()
)

var extensionsByMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

func buildMimeTypesByKind() map[enums.MediaKind][]string {
	result := make(map[enums.MediaKind][]string, len(allowedMimeGroupsByKind))
	for kind, groups := range allowedMimeGroupsByKind {
		set := make(map[string]struct{})
		for _, group := range groups {
			for _, value := range mimeGroupTypes[group] {
				set[value] = struct{}{}
			}
		}
		list := make([]string, 0, len(set))
		for value := range set {
			list = append(list, value)
		}
		sort.Strings(list)
		result[kind] = list
	}
	return result
}

func buildMimeDescriptions() map[enums.MediaKind]string {
	result := make(map[enums.MediaKind]string, len(allowedMimeGroupsByKind))
	for kind, groups := range allowedMimeGroupsByKind {
		var descriptions []string
		for _, group := range groups {
			if name, ok := mimeGroupNames[group]; ok {
				descriptions = append(descriptions, name)
			}
		}
		result[kind] = strings.Join(descriptions, " or ")
	}
	return result
}

func normalizeMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	for _, candidate := range mimeTypesByKind[kind] {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func allowedMimeDescription(kind enums.MediaKind) string {
	if msg, ok := mimeDescriptionsByKind[kind]; ok && msg != "" {
		return msg
	}
	return "the approved mime types"
}

func extensionFor(mimeType, fileName string) string {
	if ext, ok := extensionsByMime[mimeType]; ok {
		return ext
	}
	return strings.ToLower(path.Ext(sanitizeFileName(fileName)))
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "" || clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
