package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/pressly/goose/v3"
)

const versionLayout = "20060102150405"

var sqlSkeleton = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.}}
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback {{.}}
-- +goose StatementEnd
`))

// CreateSQLMigration writes <dir>/<timestamp>_<slug>.sql with empty goose
// sections and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	var body bytes.Buffer
	if err := sqlSkeleton.Execute(&body, slug); err != nil {
		return "", err
	}

	file := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	if _, err := f.Write(body.Bytes()); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", file, err)
	}
	return file, f.Close()
}

// slugify lowercases name and joins its alphanumeric runs with underscores.
func slugify(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	return strings.Join(words, "_")
}

func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS checks every .sql file under dir has a unique 14-digit version,
// a lowercase slug and both goose sections.
func ValidateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	versions := make(map[int64]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		if err := checkFileName(name); err != nil {
			return err
		}
		version, err := goose.NumericComponent(name)
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if other, dup := versions[version]; dup {
			return fmt.Errorf("migrations %s and %s share version %d", other, name, version)
		}
		versions[version] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return err
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !bytes.Contains(body, []byte(marker)) {
				return fmt.Errorf("migration %s lacks %q", name, marker)
			}
		}
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations in %s", dir)
	}
	return nil
}

func checkFileName(name string) error {
	stem := strings.TrimSuffix(name, ".sql")
	version, slug, ok := strings.Cut(stem, "_")
	if !ok || len(version) != len(versionLayout) || slug != slugify(slug) {
		return fmt.Errorf("migration file %q must look like YYYYMMDDHHMMSS_name.sql", name)
	}
	if _, err := time.Parse(versionLayout, version); err != nil {
		return fmt.Errorf("migration file %q has a malformed timestamp", name)
	}
	return nil
}
