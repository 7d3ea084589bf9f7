package storage

import (
	"strconv"
	"strings"
)

// Dialect names the SQL flavour a connection speaks. Stores write SQLite-style
// "?" placeholders and portable SQL; the dialect rebinds placeholders and fills
// in the few DDL fragments that differ.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites "?" placeholders to "$1", "$2", ... for Postgres.
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ddl substitutes dialect-specific column types into a schema statement.
//
//	{{pk}}     auto-increment integer primary key
//	{{bigint}} 64-bit integer
//	{{real}}   floating point
func (d Dialect) ddl(stmt string) string {
	pk, bigint, real := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "REAL"
	if d == DialectPostgres {
		pk, bigint, real = "BIGSERIAL PRIMARY KEY", "BIGINT", "DOUBLE PRECISION"
	}
	return strings.NewReplacer("{{pk}}", pk, "{{bigint}}", bigint, "{{real}}", real).Replace(stmt)
}
