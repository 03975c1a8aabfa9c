package migrations

import "embed"

// PostgresFS embeds the audit table migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the trade event migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
