package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/magisurprise/backend/pkg/slug"
)

const versionLayout = "20060102150405"

// Scaffold is a migration file written by CreateSQLMigration.
type Scaffold struct {
	Version int64
	Name    string
	Path    string
}

// CreateSQLMigration writes <dir>/<version>_<name>.sql. The name is folded
// the way catalog slugs are ("Añadir notas al pedido" becomes
// anadir_notas_al_pedido) and the version is the later of the current UTC
// second and the newest existing version plus one, so files created in the
// same second or on a lagging clock still sort after what is there.
//
// A name starting with create_ gets a table skeleton with the uuid key and
// timestamps every MagiSurprise table carries.
func CreateSQLMigration(dir string, name string, now time.Time) (Scaffold, error) {
	if dir == "" {
		return Scaffold{}, fmt.Errorf("dir is required")
	}
	safe := strings.ReplaceAll(slug.Normalize(name), "-", "_")
	if safe == "" {
		return Scaffold{}, fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Scaffold{}, fmt.Errorf("mkdir %q: %w", dir, err)
	}

	latest, err := latestVersion(dir)
	if err != nil {
		return Scaffold{}, err
	}
	version, err := strconv.ParseInt(now.UTC().Format(versionLayout), 10, 64)
	if err != nil {
		return Scaffold{}, err
	}
	if version <= latest {
		version = latest + 1
	}

	out := Scaffold{
		Version: version,
		Name:    safe,
		Path:    filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, safe)),
	}
	if err := os.WriteFile(out.Path, []byte(scaffoldBody(safe)), 0o644); err != nil {
		return Scaffold{}, fmt.Errorf("write migration %q: %w", out.Path, err)
	}
	return out, nil
}

func latestVersion(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var latest int64
	for _, e := range entries {
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}

func scaffoldBody(name string) string {
	table, ok := strings.CutPrefix(name, "create_")
	if !ok || table == "" {
		return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`, name)
	}
	return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
CREATE TABLE IF NOT EXISTS %[1]s (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now()
);
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
DROP TABLE IF EXISTS %[1]s;
-- +goose StatementEnd
`, table)
}
