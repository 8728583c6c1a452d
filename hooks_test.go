package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			"single statement",
			"SELECT 1",
			[]string{"SELECT 1"},
		},
		{
			"two statements",
			"SELECT 1; SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"empty statements skipped",
			"SELECT 1;; ;SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"semicolon inside quotes",
			"SELECT 'hello;world'; SELECT 2",
			[]string{"SELECT 'hello;world'", "SELECT 2"},
		},
		{
			"escaped quotes",
			"SELECT 'it''s'; SELECT 2",
			[]string{"SELECT 'it''s'", "SELECT 2"},
		},
		{
			"semicolon inside quoted identifier",
			`SELECT "a;b" FROM t; SELECT 2`,
			[]string{`SELECT "a;b" FROM t`, "SELECT 2"},
		},
		{
			"line comment",
			"SELECT 1; -- not; a statement\nSELECT 2",
			[]string{"SELECT 1", "-- not; a statement\nSELECT 2"},
		},
		{
			"anonymous dollar quote",
			"DO $$ BEGIN PERFORM 1; END $$; SELECT 2",
			[]string{"DO $$ BEGIN PERFORM 1; END $$", "SELECT 2"},
		},
		{
			"tagged dollar quote with nested $$",
			"create function f() returns text as $function$ begin return '$$;'; end; $function$ language plpgsql; create trigger x after insert on t for each row execute procedure f();",
			[]string{
				"create function f() returns text as $function$ begin return '$$;'; end; $function$ language plpgsql",
				"create trigger x after insert on t for each row execute procedure f()",
			},
		},
		{
			"positional parameter is not a dollar quote",
			"SELECT $1; SELECT 2",
			[]string{"SELECT $1", "SELECT 2"},
		},
		{
			"empty input",
			"",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q)\n got  %q\n want %q", tt.sql, got, tt.want)
			}
		})
	}
}

type recordingSource struct {
	fileSource
	execs []string
	fail  string
}

func (r *recordingSource) Exec(_ context.Context, sql string) error {
	if r.fail != "" && strings.Contains(sql, r.fail) {
		return errors.New("boom")
	}
	r.execs = append(r.execs, sql)
	return nil
}

func TestLoadAndExecSQLFiles(t *testing.T) {
	dir := t.TempDir()
	hook := "create table {{schema}}.sym_data (id int);\ngrant select on {{schema}}.sym_data to reader;\n"
	if err := os.WriteFile(filepath.Join(dir, "pre.sql"), []byte(hook), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{configDir: dir, Triggers: TriggersConfig{RuntimeSchema: "capture"}}

	src := &recordingSource{}
	if err := loadAndExecSQLFiles(context.Background(), src, cfg, []string{"pre.sql"}, "before_deploy"); err != nil {
		t.Fatalf("loadAndExecSQLFiles() error: %v", err)
	}
	want := []string{
		"create table capture.sym_data (id int)",
		"grant select on capture.sym_data to reader",
	}
	if !reflect.DeepEqual(src.execs, want) {
		t.Errorf("executed %q, want %q", src.execs, want)
	}

	src = &recordingSource{fail: "grant"}
	err := loadAndExecSQLFiles(context.Background(), src, cfg, []string{"pre.sql"}, "before_deploy")
	if err == nil || !strings.Contains(err.Error(), "statement 2") {
		t.Errorf("error = %v, want statement 2 failure", err)
	}

	if err := loadAndExecSQLFiles(context.Background(), src, cfg, []string{"missing.sql"}, "after_deploy"); err == nil {
		t.Error("expected error for missing hook file")
	}
}
