package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"dealer-scan/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded audit table migrations in
// lexical order. Every file is idempotent, so rerunning on startup is safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *logrus.Entry) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		logger.WithField("migration", file).Debug("applied postgres migration")
	}

	return nil
}

// sqlFiles lists the .sql files of dir in lexical order.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
