package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const versionLayout = "20060102150405"

// CreateSQLMigration writes an empty goose migration under dir and returns its
// path. The name is folded to lower snake case.
func CreateSQLMigration(dir, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, at time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("migrate: dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migrate: name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: creating %s: %w", dir, err)
	}

	target := filepath.Join(dir, at.Format(versionLayout)+"_"+slug+".sql")
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("migrate: %s already exists", target)
	}
	if err != nil {
		return "", fmt.Errorf("migrate: creating %s: %w", target, err)
	}
	defer file.Close()

	if _, err := file.WriteString(skeleton(slug)); err != nil {
		return "", fmt.Errorf("migrate: writing %s: %w", target, err)
	}
	return target, nil
}

func skeleton(slug string) string {
	var b strings.Builder
	b.WriteString(markerUp + "\n")
	b.WriteString(markerStatementBegin + "\n")
	b.WriteString("-- " + slug + "\n")
	b.WriteString(markerStatementEnd + "\n\n")
	b.WriteString(markerDown + "\n")
	b.WriteString(markerStatementBegin + "\n")
	b.WriteString("-- undo " + slug + "\n")
	b.WriteString(markerStatementEnd + "\n")
	return b.String()
}

// slugify keeps ascii letters and digits, collapsing every other run into one underscore.
func slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}
