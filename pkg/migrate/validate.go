package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

const (
	markerUp             = "-- +goose Up"
	markerDown           = "-- +goose Down"
	markerStatementBegin = "-- +goose StatementBegin"
	markerStatementEnd   = "-- +goose StatementEnd"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations under dir; see Validate.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("migrate: dir is required")
	}
	source, err := Source(dir)
	if err != nil {
		return err
	}
	return Validate(source)
}

// Validate reports every malformed migration in source rather than stopping
// at the first: names must be <YYYYMMDDHHMMSS>_<snake>.sql, versions unique,
// and each file needs both goose sections with balanced statement markers.
func Validate(source fs.FS) error {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return fmt.Errorf("migrate: listing migrations: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("migrate: no migrations found")
	}
	sort.Strings(names)

	var problems error
	versions := make(map[string]string, len(names))
	for _, name := range names {
		match := migrationName.FindStringSubmatch(path.Base(name))
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if first, dup := versions[match[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], first))
			continue
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(source, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, checkMarkers(name, string(body)))
	}
	return problems
}

func checkMarkers(name, body string) error {
	var problems error
	for _, marker := range []string{markerUp, markerDown} {
		if !strings.Contains(body, marker) {
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, marker))
		}
	}
	if up, down := strings.Index(body, markerUp), strings.Index(body, markerDown); up >= 0 && down >= 0 && down < up {
		problems = multierr.Append(problems, fmt.Errorf("%s: down section precedes up section", name))
	}
	begins := strings.Count(body, markerStatementBegin)
	ends := strings.Count(body, markerStatementEnd)
	if begins != ends {
		problems = multierr.Append(problems, fmt.Errorf("%s: %d StatementBegin vs %d StatementEnd", name, begins, ends))
	}
	return problems
}
