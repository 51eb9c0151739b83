package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

// CreateSQLMigration creates a goose SQL migration with the same version in
// every dialect subdirectory:
//
//	<dir>/{postgres,sqlite}/<YYYYMMDDHHMMSS>_<name>.sql
func CreateSQLMigration(dir string, name string, now time.Time) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	safe := sanitizeName(name)
	if safe == "" {
		return nil, fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	version := now.UTC().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", version, safe)
	template := fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %s
-- +goose StatementEnd
`, safe, safe)

	var created []string
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		target := filepath.Join(dir, subdir(dialect))
		if err := os.MkdirAll(target, 0o755); err != nil {
			return created, fmt.Errorf("mkdir %q: %w", target, err)
		}
		fullpath := filepath.Join(target, filename)
		if _, err := os.Stat(fullpath); err == nil {
			return created, fmt.Errorf("migration already exists: %s", fullpath)
		}
		if err := os.WriteFile(fullpath, []byte(template), 0o644); err != nil {
			return created, fmt.Errorf("write migration %q: %w", fullpath, err)
		}
		created = append(created, fullpath)
	}

	return created, nil
}

func sanitizeName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}
