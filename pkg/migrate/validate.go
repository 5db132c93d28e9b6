package migrate

import (
	"bytes"
	"fmt"
	"io/fs"
	"regexp"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var (
	gooseUp   = []byte("-- +goose Up")
	gooseDown = []byte("-- +goose Down")
)

// Validate checks every SQL file in fsys has a unique timestamped name and both goose
// sections.
func Validate(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	versions := make(map[string]string, len(names))
	for _, name := range names {
		m := migrationNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if !bytes.Contains(body, gooseUp) || !bytes.Contains(body, gooseDown) {
			return fmt.Errorf("migration %q needs both goose Up and Down sections", name)
		}
	}
	return nil
}
