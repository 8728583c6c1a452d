package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TriggerOptions are the capture settings shared by every table.
type TriggerOptions struct {
	Prefix          string // log table and helper prefix, e.g. "sym"
	RuntimeSchema   string // schema holding the log table; empty uses the session default
	NumberAsText    bool
	NumberPrecision string
	CreateTimeZone  string

	// Expression overrides; empty keeps the dialect default.
	TxIDExpression               string
	SourceNodeExpression         string
	ExternalSelect               string
	SyncOnIncomingBatchCondition string

	Custom CustomTriggerText
}

// CustomTriggerText is spliced verbatim into trigger bodies before and after
// the capture block.
type CustomTriggerText struct {
	BeforeInsert string `toml:"before_insert"`
	BeforeUpdate string `toml:"before_update"`
	BeforeDelete string `toml:"before_delete"`
	OnInsert     string `toml:"on_insert"`
	OnUpdate     string `toml:"on_update"`
	OnDelete     string `toml:"on_delete"`
}

// TriggerHistory versions the trigger definitions of one table. Its ID is
// written into every captured row.
type TriggerHistory struct {
	ID              int
	TargetTableName string
	Channel         string
	SyncOnInsert    bool
	SyncOnUpdate    bool
	SyncOnDelete    bool
	InsertCondition string
	UpdateCondition string
	DeleteCondition string
}

// NewTriggerHistory returns a history that captures every event on the
// default channel.
func NewTriggerHistory(id int) *TriggerHistory {
	return &TriggerHistory{
		ID:           id,
		Channel:      "default",
		SyncOnInsert: true,
		SyncOnUpdate: true,
		SyncOnDelete: true,
	}
}

// TriggerDefinition is the rendered text of one trigger kind for one table.
type TriggerDefinition struct {
	Kind  TriggerKind
	Table string
	Name  string
	SQL   string
	// Statements is SQL ready for execution in order: an optional drop
	// followed by the create text.
	Statements []string
}

// TriggerBuilder renders template sets against table metadata. It holds no
// mutable state and is safe for concurrent use.
type TriggerBuilder struct {
	set     *TemplateSet
	info    *DatabaseInfo
	opts    TriggerOptions
	columns *columnSelector
}

// NewTriggerBuilder prepares a builder for one dialect's template set.
func NewTriggerBuilder(set *TemplateSet, opts TriggerOptions) (*TriggerBuilder, error) {
	info, err := lookupDatabaseInfo(set.Dialect)
	if err != nil {
		return nil, err
	}
	if opts.Prefix == "" {
		opts.Prefix = "sym"
	}
	return &TriggerBuilder{
		set:     set,
		info:    info,
		opts:    opts,
		columns: newColumnSelector(set, opts.Prefix, opts.NumberPrecision, opts.NumberAsText),
	}, nil
}

// TriggerName returns <prefix>_on_<event>_<table>, lower-cased and cut to
// the dialect's identifier limit.
func (b *TriggerBuilder) TriggerName(kind TriggerKind, table *Table) string {
	name := strings.ToLower(fmt.Sprintf("%s_on_%s_%s", b.opts.Prefix, kind.eventCode(), table.Name))
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return '_'
	}, name)
	if limit := b.info.MaxIdentifierLength; limit > 0 && len(name) > limit {
		name = name[:limit]
	}
	return name
}

// Build renders one trigger kind for a table. A token missing from the
// render context fails the build for the table.
func (b *TriggerBuilder) Build(kind TriggerKind, table *Table, hist *TriggerHistory) (*TriggerDefinition, error) {
	if kind == KindInitialLoad {
		return nil, fmt.Errorf("build %s: use InitialLoadSQL for initial load queries", table.FullyQualifiedName())
	}
	ctx, err := b.context(kind, table, hist, "1=1", "")
	if err != nil {
		return nil, b.fail(kind, table, err)
	}
	text, ok := b.set.Structural[kind]
	if !ok {
		return nil, b.fail(kind, table, &TemplateError{Key: kind.String(), Reason: "missing structural template"})
	}
	sql, err := render(text, ctx)
	if err != nil {
		return nil, b.fail(kind, table, err)
	}

	def := &TriggerDefinition{
		Kind:  kind,
		Table: table.FullyQualifiedName(),
		Name:  ctx["triggerName"],
		SQL:   sql,
	}
	if b.set.DropTrigger != "" {
		drop, err := render(b.set.DropTrigger, ctx)
		if err != nil {
			return nil, b.fail(kind, table, err)
		}
		def.Statements = append(def.Statements, drop)
	}
	if b.set.SplitStatements {
		def.Statements = append(def.Statements, splitStatements(sql)...)
	} else {
		def.Statements = append(def.Statements, strings.TrimSpace(sql))
	}
	return def, nil
}

// BuildAll renders the insert, update and delete triggers of a table. With
// reload set, insert and update capture only primary keys as reload events.
// Events whose sync flag is off are skipped.
func (b *TriggerBuilder) BuildAll(table *Table, hist *TriggerHistory, reload bool) ([]*TriggerDefinition, error) {
	insert, update := KindInsert, KindUpdate
	if reload {
		insert, update = KindInsertReload, KindUpdateReload
	}
	var kinds []TriggerKind
	if hist.SyncOnInsert {
		kinds = append(kinds, insert)
	}
	if hist.SyncOnUpdate {
		kinds = append(kinds, update)
	}
	if hist.SyncOnDelete {
		kinds = append(kinds, KindDelete)
	}
	defs := make([]*TriggerDefinition, 0, len(kinds))
	for _, k := range kinds {
		def, err := b.Build(k, table, hist)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// InitialLoadSQL renders the read-only query that projects every column of
// the table through the capture expressions. where defaults to 1=1 and hint
// is inserted verbatim.
func (b *TriggerBuilder) InitialLoadSQL(table *Table, hist *TriggerHistory, where, hint string) (string, error) {
	if strings.TrimSpace(where) == "" {
		where = "1=1"
	}
	ctx, err := b.context(KindInitialLoad, table, hist, where, hint)
	if err != nil {
		return "", b.fail(KindInitialLoad, table, err)
	}
	sql, err := render(b.set.Structural[KindInitialLoad], ctx)
	if err != nil {
		return "", b.fail(KindInitialLoad, table, err)
	}
	return sql, nil
}

func (b *TriggerBuilder) fail(kind TriggerKind, table *Table, err error) error {
	var te *TemplateError
	if errors.As(err, &te) && te.Dialect == "" {
		err = &TemplateError{Dialect: b.set.Dialect, Key: kind.String() + "/" + te.Key, Reason: te.Reason}
	}
	return fmt.Errorf("build %s trigger for %s: %w", kind, table.FullyQualifiedName(), err)
}

// context assembles every structural token for one render.
func (b *TriggerBuilder) context(kind TriggerKind, table *Table, hist *TriggerHistory, where, hint string) (map[string]string, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	if hist == nil {
		return nil, fmt.Errorf("no trigger history")
	}

	primary := b.set.Inline
	if len(table.LobColumns()) > 0 {
		primary = b.set.Lob
	}
	fallback := b.set.Fallback

	newAlias, oldAlias := b.set.NewAlias, b.set.OldAlias
	if kind == KindInitialLoad {
		newAlias, oldAlias = "t", "t"
	}

	target := hist.TargetTableName
	if target == "" {
		target = table.Name
	}
	defaultSchema := ""
	if b.opts.RuntimeSchema != "" {
		defaultSchema = b.opts.RuntimeSchema + "."
	}
	channel := hist.Channel
	if channel == "" {
		channel = "default"
	}

	ctx := map[string]string{
		"triggerName":       b.TriggerName(kind, table),
		"schemaName":        b.schemaQualifier(table),
		"tableName":         b.info.QuoteIdentifier(table.Name),
		"defaultSchema":     defaultSchema,
		"prefixName":        b.opts.Prefix,
		"targetTableName":   sqlQuoteEscape(target),
		"triggerHistoryId":  strconv.Itoa(hist.ID),
		"channelExpression": "'" + sqlQuoteEscape(channel) + "'",

		"syncOnInsertCondition": condition(hist.InsertCondition),
		"syncOnUpdateCondition": condition(hist.UpdateCondition),
		"syncOnDeleteCondition": condition(hist.DeleteCondition),

		"lobType":                         primary.Type,
		"fallbackLobType":                 fallback.Type,
		"toLob":                           primary.ToLob,
		"toLobAlways":                     fallback.ToLob,
		"dataHasChangedCondition":         primary.Changed,
		"fallbackDataHasChangedCondition": fallback.Changed,

		"custom_before_insert_text": b.opts.Custom.BeforeInsert,
		"custom_before_update_text": b.opts.Custom.BeforeUpdate,
		"custom_before_delete_text": b.opts.Custom.BeforeDelete,
		"custom_on_insert_text":     b.opts.Custom.OnInsert,
		"custom_on_update_text":     b.opts.Custom.OnUpdate,
		"custom_on_delete_text":     b.opts.Custom.OnDelete,

		"whereClause": where,
		"queryHint":   hint,
	}

	// Dialect expressions may reference the base tokens above.
	exprs := map[string]string{
		"txIdExpression":               b.opts.TxIDExpression,
		"sourceNodeExpression":         b.opts.SourceNodeExpression,
		"externalSelect":               b.opts.ExternalSelect,
		"syncOnIncomingBatchCondition": b.opts.SyncOnIncomingBatchCondition,
	}
	for name, override := range exprs {
		text := override
		if text == "" {
			text = b.set.Expressions[name]
		}
		v, err := render(text, ctx)
		if err != nil {
			return nil, err
		}
		ctx[name] = v
	}
	ctx["createTimeExpression"] = b.set.CreateTime
	if b.opts.CreateTimeZone != "" && b.set.CreateTimeZone != "" {
		ctx["createTimeExpression"] = fmt.Sprintf(b.set.CreateTimeZone, sqlQuoteEscape(b.opts.CreateTimeZone))
	}

	pk := table.PrimaryKeyColumns()
	var err error
	cols := []struct {
		token    string
		cols     []Column
		alias    string
		toLob    string
		fallback bool
	}{
		{"columns", table.Columns, newAlias, primary.ToLob, false},
		{"oldColumns", table.Columns, oldAlias, primary.ToLob, false},
		{"fallbackColumns", table.Columns, newAlias, fallback.ToLob, true},
		{"fallbackOldColumns", table.Columns, oldAlias, fallback.ToLob, true},
		{"newKeys", pk, newAlias, primary.ToLob, false},
		{"oldKeys", pk, oldAlias, primary.ToLob, false},
	}
	for _, c := range cols {
		if ctx[c.token], err = b.columns.expressions(c.cols, c.alias, c.toLob, c.fallback); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// schemaQualifier returns the quoted schema (or catalog, for engines where the
// database is the namespace) followed by a dot, or "" when neither is set.
func (b *TriggerBuilder) schemaQualifier(table *Table) string {
	switch {
	case table.Schema != "":
		return b.info.QuoteIdentifier(table.Schema) + "."
	case table.Catalog != "":
		return b.info.QuoteIdentifier(table.Catalog) + "."
	default:
		return ""
	}
}

func condition(c string) string {
	if strings.TrimSpace(c) == "" {
		return "1=1"
	}
	return c
}

func sqlQuoteEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
