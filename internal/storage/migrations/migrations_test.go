package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLFiles_Embedded(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_alarms.sql", "002_trade_attempts.sql"}, pg)

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_trade_events.sql"}, ch)
}

func TestClickhouseMigrations_SplitCleanly(t *testing.T) {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		require.NoError(t, err)

		stmts, err := splitStatements(string(data))
		require.NoError(t, err, file)
		require.NotEmpty(t, stmts, file)
		for _, stmt := range stmts {
			assert.NotContains(t, stmt, "--", "comment leaked into statement")
			assert.NotContains(t, stmt, ";")
		}
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "comments and blank lines",
			sql: `
-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

CREATE TABLE b (y String) ENGINE = Memory; -- trailing
`,
			want: []string{
				"CREATE TABLE a (x UInt8) ENGINE = Memory",
				"CREATE TABLE b (y String) ENGINE = Memory",
			},
		},
		{
			name: "semicolon inside literal",
			sql:  "SELECT 'a;b'; SELECT 2",
			want: []string{"SELECT 'a;b'", "SELECT 2"},
		},
		{
			name: "escaped quote",
			sql:  "SELECT 'it''s; fine';",
			want: []string{"SELECT 'it''s; fine'"},
		},
		{
			name: "comment marker inside literal",
			sql:  "SELECT '--x';",
			want: []string{"SELECT '--x'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitStatements(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitStatements_Unterminated(t *testing.T) {
	_, err := splitStatements("SELECT 'oops;")
	assert.Error(t, err)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/dealer")
	require.NoError(t, err)
	assert.Equal(t, "dealer", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
