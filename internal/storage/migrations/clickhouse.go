package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	chstore "dealer-scan/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the database named in dsn if needed,
// applies the embedded trade event migrations and returns a connection to
// that database.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger *logrus.Entry) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if err := applyClickhouse(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn, logger *logrus.Entry) error {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts, err := splitStatements(string(data))
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", file, err)
		}
		// The native protocol takes one statement per Exec.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
		logger.WithField("migration", file).Debug("applied clickhouse migration")
	}
	return nil
}

// splitStatements splits SQL on semicolons outside single-quoted literals.
// "--" comments run to end of line and are dropped. A doubled single quote
// escapes a quote.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts   []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inQuote:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inQuote = false
				}
			}
		case ch == '\'':
			inQuote = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, errors.New("unterminated string literal")
	}
	flush()
	return stmts, nil
}

// databaseFromDSN returns the path component of a clickhouse:// DSN.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", errors.New("clickhouse dsn missing database")
	}
	return db, nil
}
