package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// sqliteSource reads table metadata from a SQLite file opened read-only.
// SQLite has no capture template set, so it serves generate runs only.
type sqliteSource struct {
	db *sql.DB
}

func openSQLiteSource(ctx context.Context, dsn string) (*sqliteSource, error) {
	uri, err := sqliteReadOnlyURI(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &sqliteSource{db: db}, nil
}

func (s *sqliteSource) Name() string    { return "SQLite" }
func (s *sqliteSource) Dialect() string { return "sqlite" }

func (s *sqliteSource) Exec(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *sqliteSource) QueryRows(ctx context.Context, query string, fn func(string) error) error {
	return queryStrings(ctx, s.db, query, fn)
}

func (s *sqliteSource) Close() error { return s.db.Close() }

// --- DSN handling ---

func sqliteReadOnlyURI(dsn string) (string, error) {
	// Reject in-memory databases
	if dsn == ":memory:" || dsn == "file::memory:" ||
		strings.Contains(dsn, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases are not supported (each sql.Open gets a separate DB)")
	}

	if !strings.HasPrefix(dsn, "file:") {
		// Plain file path → file URI with read-only mode
		return "file:" + dsn + "?mode=ro", nil
	}

	// URI form — add or override mode=ro
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	q.Set("mode", "ro")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// --- Metadata ---

// ReadTable reads a table's columns with PRAGMA table_info. SQLite has no
// catalogs or schemas here, so only the name is used, compared exactly.
func (s *sqliteSource) ReadTable(ctx context.Context, _, _ string, name string) (*Table, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup table: %w", err)
	}

	quoted := strings.ReplaceAll(name, "\"", "\"\"")
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(\"%s\")", quoted))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var cid, notnull, pk int
		var colName, declared string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &declared, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		size, scale := parseTypeParams(declared)
		c := NewColumn(colName, sqliteNativeType(declared), size, scale, notnull == 1 || pk > 0, pk > 0)
		c.TypeName = strings.ToLower(declared)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Table{Name: found, Columns: cols}, nil
}

// normalizeAffinity extracts the base type name for SQLite's flexible type system.
func normalizeAffinity(declaredType string) string {
	dt := strings.TrimSpace(declaredType)
	if dt == "" {
		return "blob" // no declared type = BLOB affinity
	}
	return baseTypeName(dt)
}

// sqliteNativeType maps a declared type to a native type, falling back to
// SQLite's affinity rules for names it does not recognize.
func sqliteNativeType(declared string) NativeType {
	base := normalizeAffinity(declared)
	switch base {
	case "char", "character", "nchar":
		return TypeChar
	case "varchar", "nvarchar", "varying character":
		return TypeVarchar
	case "text", "clob", "json":
		return TypeLongVarchar
	case "tinyint":
		return TypeTinyInt
	case "smallint":
		return TypeSmallInt
	case "int", "integer", "mediumint":
		return TypeInteger
	case "bigint":
		return TypeBigInt
	case "numeric", "decimal":
		return TypeDecimal
	case "real", "float":
		return TypeReal
	case "double", "double precision":
		return TypeDouble
	case "boolean", "bool":
		return TypeBoolean
	case "date":
		return TypeDate
	case "time":
		return TypeTime
	case "datetime", "timestamp":
		return TypeTimestamp
	case "blob":
		return TypeBlob
	}
	switch {
	case strings.Contains(base, "int"):
		return TypeInteger
	case strings.Contains(base, "char"), strings.Contains(base, "clob"), strings.Contains(base, "text"):
		return TypeLongVarchar
	case strings.Contains(base, "blob"):
		return TypeBlob
	case strings.Contains(base, "real"), strings.Contains(base, "floa"), strings.Contains(base, "doub"):
		return TypeDouble
	}
	return TypeNumeric
}

var _ Source = (*sqliteSource)(nil)
