package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// session binds one config to an open source and the objects built over it.
type session struct {
	cfg      *Config
	src      Source
	set      *TemplateSet
	platform *Platform
	builder  *TriggerBuilder
	logger   hclog.Logger
}

type capturedTable struct {
	cfg   TableConfig
	table *Table
}

func newSession(ctx context.Context, cfg *Config, logger hclog.Logger) (*session, error) {
	catalog, err := NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dialect := cfg.Dialect
	if dialect == "" {
		dialect = src.Dialect()
	}
	set, err := catalog.TemplateSet(dialect)
	if err != nil {
		src.Close()
		return nil, err
	}
	info, err := lookupDatabaseInfo(dialect)
	if err != nil {
		src.Close()
		return nil, err
	}
	builder, err := NewTriggerBuilder(set, cfg.triggerOptions())
	if err != nil {
		src.Close()
		return nil, err
	}

	logger.Info("opened source", "source", src.Name(), "dialect", dialect, "tables", len(cfg.Tables), "workers", cfg.Workers)
	return &session{
		cfg:      cfg,
		src:      src,
		set:      set,
		platform: NewPlatform(info, src, cfg.platformOptions(), logger.Named("metadata")),
		builder:  builder,
		logger:   logger,
	}, nil
}

func (s *session) Close() error { return s.src.Close() }

// resolveTables reads the metadata of every configured table through the
// shared cache, in parallel.
func (s *session) resolveTables(ctx context.Context) ([]capturedTable, error) {
	out := make([]capturedTable, len(s.cfg.Tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, tc := range s.cfg.Tables {
		i, tc := i, tc
		g.Go(func() error {
			t, err := s.platform.Table(gctx, tc.Catalog, tc.Schema, tc.Name, false)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("table %s not found", fullyQualifiedName(tc.Catalog, tc.Schema, tc.Name))
			}
			out[i] = capturedTable{cfg: tc, table: t}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// buildTriggers renders every configured table's triggers in parallel. The
// result keeps the config's table order.
func (s *session) buildTriggers(ctx context.Context) ([]*TriggerDefinition, error) {
	tables, err := s.resolveTables(ctx)
	if err != nil {
		return nil, err
	}
	perTable := make([][]*TriggerDefinition, len(tables))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, ct := range tables {
		i, ct := i, ct
		g.Go(func() error {
			defs, err := s.builder.BuildAll(ct.table, ct.cfg.history(), s.cfg.Triggers.Reload)
			if err != nil {
				return err
			}
			perTable[i] = defs
			s.logger.Debug("built triggers", "table", ct.table.FullyQualifiedName(), "count", len(defs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var defs []*TriggerDefinition
	for _, d := range perTable {
		defs = append(defs, d...)
	}
	return defs, nil
}

// generate writes the trigger deployment script.
func (s *session) generate(ctx context.Context, w io.Writer) error {
	defs, err := s.buildTriggers(ctx)
	if err != nil {
		return err
	}
	sw := newScriptWriter(w, s.set.Dialect)
	for _, d := range defs {
		sw.comment(fmt.Sprintf("%s trigger %s on %s", d.Kind, d.Name, d.Table))
		for _, stmt := range d.Statements {
			sw.statement(stmt)
		}
	}
	return sw.close()
}

// deploy drops and recreates every trigger on the source, in order, with the
// configured hooks around it.
func (s *session) deploy(ctx context.Context) error {
	defs, err := s.buildTriggers(ctx)
	if err != nil {
		return err
	}
	if err := loadAndExecSQLFiles(ctx, s.src, s.cfg, s.cfg.Hooks.BeforeDeploy, "before_deploy"); err != nil {
		return err
	}
	for _, d := range defs {
		start := time.Now()
		for i, stmt := range d.Statements {
			if err := s.src.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("deploy %s: statement %d: %w\nSQL: %s", d.Name, i+1, err, stmt)
			}
		}
		s.logger.Info("deployed trigger", "trigger", d.Name, "table", d.Table, "kind", d.Kind.String(), "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return loadAndExecSQLFiles(ctx, s.src, s.cfg, s.cfg.Hooks.AfterDeploy, "after_deploy")
}

// initialLoad runs each table's initial-load query and writes one literal
// insert per captured row.
func (s *session) initialLoad(ctx context.Context, w io.Writer, where, hint string) error {
	tables, err := s.resolveTables(ctx)
	if err != nil {
		return err
	}
	enc := s.set.Encoding
	scriptEnc := enc
	if s.cfg.Script.BinaryEncoding != nil {
		scriptEnc = *s.cfg.Script.BinaryEncoding
	}
	useVariableDates := s.cfg.Script.UseVariableDates

	sw := newScriptWriter(w, s.set.Dialect)
	for _, ct := range tables {
		query, err := s.builder.InitialLoadSQL(ct.table, ct.cfg.history(), where, hint)
		if err != nil {
			return err
		}
		insert := insertStatement(s.platform.Info(), ct.table)
		sw.comment("initial load of " + ct.table.FullyQualifiedName())

		rows := 0
		err = s.src.QueryRows(ctx, query, func(text string) error {
			values, err := DecodeRowData(text)
			if err != nil {
				return err
			}
			objects, err := s.platform.ObjectValues(enc, values, ct.table.Columns, false)
			if err != nil {
				return err
			}
			row := make(map[string]any, len(objects))
			for i, v := range objects {
				row[ct.table.Columns[i].Name] = v
			}
			stmt, err := s.platform.ReplaceSQL(insert, scriptEnc, ct.table.Columns, row, useVariableDates)
			if err != nil {
				return err
			}
			sw.line(stmt)
			rows++
			return nil
		})
		if err != nil {
			return fmt.Errorf("initial load %s: %w", ct.table.FullyQualifiedName(), err)
		}
		s.logger.Info("initial load", "table", ct.table.FullyQualifiedName(), "rows", rows)
	}
	return sw.close()
}

// insertStatement returns a positional insert of every column of table.
func insertStatement(info *DatabaseInfo, table *Table) string {
	names := make([]string, len(table.Columns))
	marks := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = info.QuoteIdentifier(c.Name)
		marks[i] = "?"
	}
	var qualifier string
	switch {
	case table.Schema != "":
		qualifier = info.QuoteIdentifier(table.Schema) + "."
	case table.Catalog != "":
		qualifier = info.QuoteIdentifier(table.Catalog) + "."
	}
	return fmt.Sprintf("insert into %s%s (%s) values (%s)",
		qualifier, info.QuoteIdentifier(table.Name), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// scriptWriter formats statements for the dialect's command-line client:
// PL/SQL blocks end with "/", MySQL trigger bodies are wrapped in a
// DELIMITER change, PostgreSQL statements end with ";".
type scriptWriter struct {
	w       io.Writer
	dialect string
	err     error
	started bool
}

func newScriptWriter(w io.Writer, dialect string) *scriptWriter {
	return &scriptWriter{w: w, dialect: dialect}
}

func (sw *scriptWriter) printf(format string, args ...any) {
	if sw.err != nil {
		return
	}
	_, sw.err = fmt.Fprintf(sw.w, format, args...)
}

func (sw *scriptWriter) comment(text string) {
	sw.printf("-- %s\n", text)
}

func (sw *scriptWriter) line(text string) {
	sw.printf("%s\n", text)
}

func (sw *scriptWriter) statement(stmt string) {
	switch sw.dialect {
	case "oracle":
		sw.printf("%s\n/\n\n", stmt)
	case "mysql":
		if !sw.started {
			sw.printf("DELIMITER //\n\n")
			sw.started = true
		}
		sw.printf("%s\n//\n\n", stmt)
	default:
		sw.printf("%s;\n\n", stmt)
	}
}

func (sw *scriptWriter) close() error {
	if sw.started && sw.dialect == "mysql" {
		sw.printf("DELIMITER ;\n")
	}
	return sw.err
}

// openOutput returns the configured output file, or stdout when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// writeScript runs fn against out and closes it. A failed close is reported
// when fn succeeded, since it may lose the end of the script.
func writeScript(out io.WriteCloser, fn func(io.Writer) error) error {
	err := fn(out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return err
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
