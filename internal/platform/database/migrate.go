package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ApplySchema executes every *.sql file in dir in lexical order. The files
// are written to be re-runnable, so applying twice is harmless.
func ApplySchema(ctx context.Context, q Querier, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("listing schema files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no schema files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", filepath.Base(f), err)
		}
		if _, err := q.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("applying %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}
