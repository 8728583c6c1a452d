package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileSource serves table metadata from a TOML schema file, for generating
// triggers without a live connection. It cannot execute statements.
type fileSource struct {
	dialect string
	tables  []*Table
}

type schemaFile struct {
	Dialect string            `toml:"dialect"`
	Tables  []schemaFileTable `toml:"tables"`
}

type schemaFileTable struct {
	Catalog string             `toml:"catalog"`
	Schema  string             `toml:"schema"`
	Name    string             `toml:"name"`
	Columns []schemaFileColumn `toml:"columns"`
}

type schemaFileColumn struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	Size       int    `toml:"size"`
	Scale      int    `toml:"scale"`
	Required   bool   `toml:"required"`
	PrimaryKey bool   `toml:"primary_key"`
}

var errFileSourceExec = errors.New("file source is metadata-only and cannot execute statements")

func openFileSource(path string) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return parseSchemaFile(string(data))
}

func parseSchemaFile(text string) (*fileSource, error) {
	var sf schemaFile
	md, err := toml.Decode(text, &sf)
	if err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown schema file keys: %s", strings.Join(keys, ", "))
	}

	src := &fileSource{dialect: sf.Dialect}
	for _, ft := range sf.Tables {
		if ft.Name == "" {
			return nil, fmt.Errorf("schema file: table name is required")
		}
		t := &Table{Catalog: ft.Catalog, Schema: ft.Schema, Name: ft.Name}
		for _, fc := range ft.Columns {
			typ, ok := parseNativeType(fc.Type)
			if !ok {
				return nil, fmt.Errorf("schema file: %s.%s: unknown type %q", ft.Name, fc.Name, fc.Type)
			}
			t.Columns = append(t.Columns, NewColumn(fc.Name, typ, fc.Size, fc.Scale, fc.Required || fc.PrimaryKey, fc.PrimaryKey))
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("schema file: table %s has no columns", ft.Name)
		}
		src.tables = append(src.tables, t)
	}
	return src, nil
}

func (f *fileSource) Name() string    { return "schema file" }
func (f *fileSource) Dialect() string { return f.dialect }

func (f *fileSource) Exec(context.Context, string) error { return errFileSourceExec }

func (f *fileSource) QueryRows(context.Context, string, func(string) error) error {
	return errFileSourceExec
}

func (f *fileSource) Close() error { return nil }

// ReadTable matches names exactly, like a database dictionary would.
func (f *fileSource) ReadTable(_ context.Context, catalog, schema, name string) (*Table, error) {
	for _, t := range f.tables {
		if t.Catalog == catalog && t.Schema == schema && t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

var _ Source = (*fileSource)(nil)
