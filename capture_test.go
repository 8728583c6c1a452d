package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersSchemaColumns = `
[[tables.columns]]
name = "id"
type = "integer"
primary_key = true

[[tables.columns]]
name = "note"
type = "varchar"
size = 100

[[tables.columns]]
name = "amount"
type = "decimal"
size = 10
scale = 2

[[tables.columns]]
name = "created"
type = "timestamp"
`

// newFileSession writes a schema file and config into a temp dir and opens a
// session over them.
func newFileSession(t *testing.T, schema, config string) *session {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.toml"), []byte(schema), 0644))
	cfgFile := filepath.Join(dir, "capture.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(config), 0644))

	cfg, err := loadConfig(cfgFile)
	require.NoError(t, err)
	s, err := newSession(context.Background(), cfg, hclog.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func postgresSession(t *testing.T, extra string) *session {
	return newFileSession(t,
		"dialect = \"postgres\"\n[[tables]]\nschema = \"public\"\nname = \"orders\"\n"+ordersSchemaColumns,
		"[source]\ntype = \"file\"\npath = \"schema.toml\"\ndefault_schema = \"public\"\n"+extra+"\n[[tables]]\nname = \"ORDERS\"\n",
	)
}

func TestGeneratePostgres(t *testing.T) {
	s := postgresSession(t, "")
	require.Equal(t, "postgres", s.set.Dialect, "dialect comes from the schema file")

	var buf bytes.Buffer
	require.NoError(t, s.generate(context.Background(), &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "-- insert trigger sym_on_i_orders on public.orders\n"), out)
	assert.Contains(t, out, "-- update trigger sym_on_u_orders on public.orders\n")
	assert.Contains(t, out, "-- delete trigger sym_on_d_orders on public.orders\n")
	assert.Contains(t, out, "drop trigger if exists sym_on_i_orders on \"public\".\"orders\";\n\n")
	assert.Contains(t, out, "$function$ language plpgsql;\n\n")
	assert.Equal(t, 3, strings.Count(out, "\ncreate trigger sym_on_"))
	assert.NotContains(t, out, "$(")
}

func TestGenerateReloadAndSyncFlags(t *testing.T) {
	s := newFileSession(t,
		"dialect = \"postgres\"\n[[tables]]\nschema = \"public\"\nname = \"orders\"\n"+ordersSchemaColumns,
		`[source]
type = "file"
path = "schema.toml"
default_schema = "public"

[triggers]
reload = true

[[tables]]
name = "orders"
sync_on_delete = false
`)

	var buf bytes.Buffer
	require.NoError(t, s.generate(context.Background(), &buf))
	out := buf.String()
	assert.Contains(t, out, "-- insert_reload trigger sym_on_i_orders")
	assert.Contains(t, out, "-- update_reload trigger sym_on_u_orders")
	assert.NotContains(t, out, "sym_on_d_orders")
}

func TestGenerateOracle(t *testing.T) {
	s := newFileSession(t,
		"dialect = \"oracle\"\n[[tables]]\nschema = \"APP\"\nname = \"ORDERS\"\n"+ordersSchemaColumns,
		"[source]\ntype = \"file\"\npath = \"schema.toml\"\ndefault_schema = \"APP\"\n\n[[tables]]\nname = \"orders\"\n",
	)
	var buf bytes.Buffer
	require.NoError(t, s.generate(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "-- insert trigger sym_on_i_orders on APP.ORDERS\ncreate or replace trigger sym_on_i_orders\n")
	assert.Equal(t, 3, strings.Count(out, "\nend;\n/\n\n"))
	assert.NotContains(t, out, "drop trigger")
}

func TestGenerateMySQL(t *testing.T) {
	s := newFileSession(t,
		"dialect = \"mysql\"\n[[tables]]\ncatalog = \"shop\"\nname = \"Orders\"\n"+ordersSchemaColumns,
		"[source]\ntype = \"file\"\npath = \"schema.toml\"\ndefault_catalog = \"shop\"\n\n[[tables]]\nname = \"Orders\"\n",
	)
	var buf bytes.Buffer
	require.NoError(t, s.generate(context.Background(), &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "-- insert trigger sym_on_i_orders on shop.Orders\nDELIMITER //\n\n"), out)
	assert.True(t, strings.HasSuffix(out, "end\n//\n\nDELIMITER ;\n"), out)
	assert.Contains(t, out, "drop trigger if exists `shop`.sym_on_d_orders\n//\n\n")
}

func TestGenerateMissingTable(t *testing.T) {
	s := newFileSession(t,
		"dialect = \"postgres\"\n[[tables]]\nschema = \"public\"\nname = \"orders\"\n"+ordersSchemaColumns,
		"[source]\ntype = \"file\"\npath = \"schema.toml\"\ndefault_schema = \"public\"\n\n[[tables]]\nname = \"orders\"\n\n[[tables]]\nname = \"ghost\"\n",
	)
	var buf bytes.Buffer
	err := s.generate(context.Background(), &buf)
	assert.ErrorContains(t, err, "table ghost not found")
	assert.Empty(t, buf.String(), "nothing is written when any table fails")
}

func TestDeploy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre.sql"), []byte("create table if not exists {{schema}}.sym_data (data_id serial);"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.sql"), []byte("analyze {{schema}}.sym_data;"), 0644))

	s := postgresSession(t, "\n[triggers]\nruntime_schema = \"capture\"\n\n[hooks]\nbefore_deploy = [\""+
		filepath.Join(dir, "pre.sql")+"\"]\nafter_deploy = [\""+filepath.Join(dir, "post.sql")+"\"]\n")
	rec := &recordingSource{}
	s.src = rec

	require.NoError(t, s.deploy(context.Background()))
	require.Len(t, rec.execs, 1+3*3+1)
	assert.Equal(t, "create table if not exists capture.sym_data (data_id serial)", rec.execs[0])
	assert.Equal(t, `drop trigger if exists sym_on_i_orders on "public"."orders"`, rec.execs[1])
	assert.True(t, strings.HasPrefix(rec.execs[2], "create or replace function capture.sym_on_i_orders()"))
	assert.Equal(t, "analyze capture.sym_data", rec.execs[len(rec.execs)-1])

	rec = &recordingSource{fail: "create trigger sym_on_u_orders"}
	s.src = rec
	err := s.deploy(context.Background())
	assert.ErrorContains(t, err, "deploy sym_on_u_orders: statement 3: boom")
}

// rowSource feeds fixed row_data text to initial-load queries.
type rowSource struct {
	fileSource
	rows    []string
	queries []string
}

func (r *rowSource) QueryRows(_ context.Context, sql string, fn func(string) error) error {
	r.queries = append(r.queries, sql)
	for _, row := range r.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func TestInitialLoad(t *testing.T) {
	s := postgresSession(t, "")
	src := &rowSource{rows: []string{
		`"1","he said \"hi\"","19.99","2024-01-01 10:00:00.000000000"`,
		`"2",,,`,
	}}
	s.src = src

	var buf bytes.Buffer
	require.NoError(t, s.initialLoad(context.Background(), &buf, "id > 0", ""))

	require.Len(t, src.queries, 1)
	assert.True(t, strings.HasSuffix(src.queries[0], `from "public"."orders" t where id > 0`), src.queries[0])

	want := "-- initial load of public.orders\n" +
		`insert into "public"."orders" ("id", "note", "amount", "created") values (1, 'he said "hi"', 19.99, timestamp '2024-01-01 10:00:00.000000');` + "\n" +
		`insert into "public"."orders" ("id", "note", "amount", "created") values (2, null, null, null);` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestInitialLoadBadRow(t *testing.T) {
	s := postgresSession(t, "")
	s.src = &rowSource{rows: []string{`"x","a","1","2024-01-01"`}}

	var buf bytes.Buffer
	err := s.initialLoad(context.Background(), &buf, "", "")
	assert.ErrorContains(t, err, "initial load public.orders")
	assert.ErrorContains(t, err, "column id of type INTEGER")
}

func TestInsertStatement(t *testing.T) {
	my, err := lookupDatabaseInfo("mysql")
	require.NoError(t, err)
	got := insertStatement(my, &Table{Catalog: "app", Name: "t", Columns: []Column{{Name: "a"}, {Name: "b`c"}}})
	assert.Equal(t, "insert into `app`.`t` (`a`, `b``c`) values (?, ?)", got)

	ora, err := lookupDatabaseInfo("oracle")
	require.NoError(t, err)
	got = insertStatement(ora, &Table{Name: "T", Columns: []Column{{Name: "A"}}})
	assert.Equal(t, `insert into "T" ("A") values (?)`, got)
}

func TestScriptWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	sw := newScriptWriter(&buf, "mysql")
	sw.comment("nothing")
	require.NoError(t, sw.close())
	assert.Equal(t, "-- nothing\n", buf.String())
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *closeFailWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestWriteScriptReportsClose(t *testing.T) {
	full := errors.New("no space left on device")

	w := &closeFailWriter{closeErr: full}
	err := writeScript(w, func(out io.Writer) error {
		_, err := io.WriteString(out, "select 1;\n")
		return err
	})
	assert.ErrorIs(t, err, full)
	assert.ErrorContains(t, err, "close output")
	assert.True(t, w.closed)

	// The script error wins over the close error.
	boom := errors.New("boom")
	w = &closeFailWriter{closeErr: full}
	err = writeScript(w, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, w.closed)

	w = &closeFailWriter{}
	require.NoError(t, writeScript(w, func(out io.Writer) error {
		_, err := io.WriteString(out, "ok")
		return err
	}))
	assert.Equal(t, "ok", w.String())
}
