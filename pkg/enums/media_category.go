package enums

import (
	"fmt"
	"strings"
)

// MediaCategory groups portfolio work for filtering on the public site.
type MediaCategory string

const (
	MediaCategoryPortrait   MediaCategory = "portrait"
	MediaCategoryWedding    MediaCategory = "wedding"
	MediaCategoryEvent      MediaCategory = "event"
	MediaCategoryCommercial MediaCategory = "commercial"
	MediaCategoryLandscape  MediaCategory = "landscape"
	MediaCategoryFashion    MediaCategory = "fashion"
	MediaCategoryOther      MediaCategory = "other"
)

var validMediaCategories = []MediaCategory{
	MediaCategoryPortrait,
	MediaCategoryWedding,
	MediaCategoryEvent,
	MediaCategoryCommercial,
	MediaCategoryLandscape,
	MediaCategoryFashion,
	MediaCategoryOther,
}

func (c MediaCategory) String() string {
	return string(c)
}

func (c MediaCategory) IsValid() bool {
	for _, candidate := range validMediaCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseMediaCategory converts raw input into a MediaCategory.
func ParseMediaCategory(value string) (MediaCategory, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validMediaCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media category %q", value)
}
