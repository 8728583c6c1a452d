package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestTemplatesCommand(t *testing.T) {
	out, err := runRoot(t, "templates")
	if err != nil {
		t.Fatal(err)
	}
	if out != "mysql\noracle\npostgres\n" {
		t.Errorf("templates = %q", out)
	}

	out, err = runRoot(t, "templates", "mysql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "insert\ninsert_reload\nupdate\n") {
		t.Errorf("templates mysql = %q", out)
	}

	out, err = runRoot(t, "templates", "postgres", "delete")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "after delete on $(schemaName)$(tableName)") {
		t.Errorf("templates postgres delete = %q", out)
	}

	if _, err := runRoot(t, "templates", "postgres", "truncate"); err == nil || !strings.Contains(err.Error(), `unknown trigger kind "truncate"`) {
		t.Errorf("error = %v", err)
	}
	if _, err := runRoot(t, "templates", "db2"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}
