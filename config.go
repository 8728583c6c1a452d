package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the full TOML-driven capture configuration.
type Config struct {
	Dialect  string         `toml:"dialect"` // template set; defaults to the source engine
	Workers  int            `toml:"workers"`
	Output   string         `toml:"output"` // generated script path; empty writes to stdout
	Source   SourceConfig   `toml:"source"`
	Triggers TriggersConfig `toml:"triggers"`
	Metadata MetadataConfig `toml:"metadata"`
	Script   ScriptConfig   `toml:"script"`
	Hooks    HooksConfig    `toml:"hooks"`
	Tables   []TableConfig  `toml:"tables"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// SourceConfig identifies the database triggers are generated for.
type SourceConfig struct {
	Type           string `toml:"type"` // postgres|mysql|sqlite|file
	DSN            string `toml:"dsn"`
	Path           string `toml:"path"` // schema file for type "file"
	DefaultCatalog string `toml:"default_catalog"`
	DefaultSchema  string `toml:"default_schema"`
}

// TriggersConfig is the TOML form of TriggerOptions.
type TriggersConfig struct {
	Prefix               string            `toml:"prefix"`
	RuntimeSchema        string            `toml:"runtime_schema"`
	NumberAsText         bool              `toml:"number_as_text"`
	NumberPrecision      string            `toml:"number_precision"`
	CreateTimeTimezone   string            `toml:"create_time_timezone"`
	TxIDExpression       string            `toml:"tx_id_expression"`
	SourceNodeExpression string            `toml:"source_node_expression"`
	ExternalSelect       string            `toml:"external_select"`
	SyncOnIncomingBatch  string            `toml:"sync_on_incoming_batch"`
	Reload               bool              `toml:"reload"` // capture primary keys only, as reload events
	Custom               CustomTriggerText `toml:"custom"`
}

type MetadataConfig struct {
	CacheTTL   time.Duration `toml:"cache_ttl"`
	IgnoreCase bool          `toml:"ignore_case"`
}

type ScriptConfig struct {
	BinaryEncoding   *BinaryEncoding `toml:"binary_encoding"` // NONE|BASE64|HEX; unset uses the template set's
	UseVariableDates bool            `toml:"use_variable_dates"`
	Where            string          `toml:"where"`
	Hint             string          `toml:"hint"`
}

type HooksConfig struct {
	BeforeDeploy []string `toml:"before_deploy"`
	AfterDeploy  []string `toml:"after_deploy"`
}

// TableConfig names one captured table and its history settings. Unset sync
// flags default to true.
type TableConfig struct {
	Catalog         string `toml:"catalog"`
	Schema          string `toml:"schema"`
	Name            string `toml:"name"`
	HistoryID       int    `toml:"history_id"`
	Channel         string `toml:"channel"`
	TargetTable     string `toml:"target_table"`
	SyncOnInsert    *bool  `toml:"sync_on_insert"`
	SyncOnUpdate    *bool  `toml:"sync_on_update"`
	SyncOnDelete    *bool  `toml:"sync_on_delete"`
	InsertCondition string `toml:"insert_condition"`
	UpdateCondition string `toml:"update_condition"`
	DeleteCondition string `toml:"delete_condition"`
}

// loadConfig reads a TOML config file and returns a Config with defaults applied.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Triggers: TriggersConfig{Prefix: "sym"},
		Metadata: MetadataConfig{CacheTTL: 10 * time.Minute, IgnoreCase: true},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers()
	}

	// Source validation
	switch c.Source.Type {
	case "postgres", "mysql", "sqlite":
		if c.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required for %s sources", c.Source.Type)
		}
	case "file":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for file sources")
		}
	case "":
		return fmt.Errorf("source.type is required (must be postgres, mysql, sqlite or file)")
	default:
		return fmt.Errorf("source.type must be one of: postgres, mysql, sqlite, file")
	}

	c.Dialect = strings.ToLower(strings.TrimSpace(c.Dialect))
	if c.Dialect == "" && (c.Source.Type == "postgres" || c.Source.Type == "mysql") {
		c.Dialect = c.Source.Type
	}
	if c.Dialect != "" {
		if _, ok := dialectTemplateSets[c.Dialect]; !ok {
			return fmt.Errorf("dialect %q has no trigger templates (must be one of: %s)", c.Dialect, strings.Join(templateDialects(), ", "))
		}
	}

	if c.Metadata.CacheTTL < 0 {
		return fmt.Errorf("metadata.cache_ttl must not be negative")
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one [[tables]] entry is required")
	}
	seen := make(map[string]bool, len(c.Tables))
	for i := range c.Tables {
		t := &c.Tables[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return fmt.Errorf("tables[%d].name is required", i)
		}
		fqn := fullyQualifiedName(t.Catalog, t.Schema, t.Name)
		if seen[fqn] {
			return fmt.Errorf("table %s is listed more than once", fqn)
		}
		seen[fqn] = true
		if t.HistoryID <= 0 {
			t.HistoryID = i + 1
		}
	}
	return nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

func (c *Config) triggerOptions() TriggerOptions {
	t := c.Triggers
	return TriggerOptions{
		Prefix:                       t.Prefix,
		RuntimeSchema:                t.RuntimeSchema,
		NumberAsText:                 t.NumberAsText,
		NumberPrecision:              t.NumberPrecision,
		CreateTimeZone:               t.CreateTimeTimezone,
		TxIDExpression:               t.TxIDExpression,
		SourceNodeExpression:         t.SourceNodeExpression,
		ExternalSelect:               t.ExternalSelect,
		SyncOnIncomingBatchCondition: t.SyncOnIncomingBatch,
		Custom:                       t.Custom,
	}
}

func (c *Config) platformOptions() PlatformOptions {
	return PlatformOptions{
		CacheTTL:       c.Metadata.CacheTTL,
		DefaultCatalog: c.Source.DefaultCatalog,
		DefaultSchema:  c.Source.DefaultSchema,
		CaseFallback:   c.Metadata.IgnoreCase,
	}
}

// history returns the trigger history of a configured table.
func (t TableConfig) history() *TriggerHistory {
	h := NewTriggerHistory(t.HistoryID)
	if t.Channel != "" {
		h.Channel = t.Channel
	}
	h.TargetTableName = t.TargetTable
	h.SyncOnInsert = boolOr(t.SyncOnInsert, true)
	h.SyncOnUpdate = boolOr(t.SyncOnUpdate, true)
	h.SyncOnDelete = boolOr(t.SyncOnDelete, true)
	h.InsertCondition = t.InsertCondition
	h.UpdateCondition = t.UpdateCondition
	h.DeleteCondition = t.DeleteCondition
	return h
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
