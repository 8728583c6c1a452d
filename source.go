package main

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Source abstracts the database a capture is deployed to, so capferry can
// read metadata from and execute against multiple engines.
type Source interface {
	MetadataReader

	// Name returns a human-readable name for the source ("PostgreSQL", "MySQL").
	Name() string

	// Dialect returns the template set and database info key of the engine.
	Dialect() string

	// Exec runs one statement.
	Exec(ctx context.Context, sql string) error

	// QueryRows runs a single-column query and calls fn with each non-null value.
	QueryRows(ctx context.Context, sql string, fn func(string) error) error

	Close() error
}

// openSource opens the configured source.
func openSource(ctx context.Context, cfg *Config) (Source, error) {
	switch cfg.Source.Type {
	case "postgres":
		return openPostgresSource(ctx, cfg.Source.DSN)
	case "mysql":
		return openMySQLSource(ctx, cfg.Source.DSN)
	case "sqlite":
		return openSQLiteSource(ctx, cfg.Source.DSN)
	case "file":
		return openFileSource(cfg.resolvePath(cfg.Source.Path))
	default:
		return nil, fmt.Errorf("unsupported source type %q (must be postgres, mysql, sqlite or file)", cfg.Source.Type)
	}
}

// typeParams matches "(size)" or "(size,scale)" in a declared type.
var typeParams = regexp.MustCompile(`\(\s*(\d+)\s*(?:,\s*(-?\d+)\s*)?\)`)

// parseTypeParams returns the size and scale declared in a type name such as
// "numeric(10,2)" or "varchar(20)". Missing values are zero.
func parseTypeParams(declared string) (size, scale int) {
	m := typeParams.FindStringSubmatch(declared)
	if m == nil {
		return 0, 0
	}
	size, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		scale, _ = strconv.Atoi(m[2])
	}
	return size, scale
}

// baseTypeName lower-cases a declared type and strips parameters and
// modifiers, so "VARCHAR(20)" and "int unsigned" become "varchar" and "int".
func baseTypeName(declared string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	for _, mod := range []string{" unsigned", " zerofill", " signed"} {
		t = strings.ReplaceAll(t, mod, "")
	}
	return strings.TrimSpace(t)
}
