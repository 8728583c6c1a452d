package main

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// loadAndExecSQLFiles reads each SQL file, expands {{schema}}, and executes every statement.
func loadAndExecSQLFiles(ctx context.Context, src Source, cfg *Config, files []string, phase string) error {
	if len(files) == 0 {
		return nil
	}
	logger := GetLogger().Named("hooks")
	logger.Info("running hooks", "phase", phase, "files", len(files))

	for _, f := range files {
		path := cfg.resolvePath(f)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("hook %s: read %s: %w", phase, f, err)
		}

		sql := strings.ReplaceAll(string(data), "{{schema}}", cfg.Triggers.RuntimeSchema)
		stmts := splitStatements(sql)

		logger.Debug("executing hook file", "file", f, "statements", len(stmts))
		for i, stmt := range stmts {
			if err := src.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("hook %s: %s: statement %d: %w\nSQL: %s", phase, f, i+1, err, stmt)
			}
		}
	}
	return nil
}

// splitStatements splits SQL text on semicolons, ignoring empty entries and
// content inside single-quoted strings, double-quoted identifiers, line
// comments and dollar-quoted bodies ($$ or $tag$).
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	var quote byte
	dollarTag := ""

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case dollarTag != "":
			if strings.HasPrefix(sql[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
			current.WriteByte(c)
		case quote != 0:
			current.WriteByte(c)
			if c == quote {
				// Doubled quotes stay inside the literal.
				if i+1 < len(sql) && sql[i+1] == quote {
					current.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
		case c == '\'' || c == '"':
			quote = c
			current.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			current.WriteString(sql[i : i+end])
			i += end - 1
		case c == '$':
			if tag := dollarQuoteTag(sql[i:]); tag != "" {
				dollarTag = tag
				current.WriteString(tag)
				i += len(tag) - 1
				continue
			}
			current.WriteByte(c)
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}

	// Trailing statement without semicolon
	flush()
	return stmts
}

// dollarQuoteTag returns the opening $tag$ at the start of s, or "".
func dollarQuoteTag(s string) string {
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			return s[:i+1]
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 1:
		default:
			return ""
		}
	}
	return ""
}
