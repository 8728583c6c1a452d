package main

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// TriggerKind identifies one structural template of a template set.
type TriggerKind int

const (
	KindInsert TriggerKind = iota
	KindInsertReload
	KindUpdate
	KindUpdateReload
	KindDelete
	KindInitialLoad
)

var allKinds = []TriggerKind{
	KindInsert, KindInsertReload, KindUpdate, KindUpdateReload, KindDelete, KindInitialLoad,
}

func (k TriggerKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindInsertReload:
		return "insert_reload"
	case KindUpdate:
		return "update"
	case KindUpdateReload:
		return "update_reload"
	case KindDelete:
		return "delete"
	case KindInitialLoad:
		return "initial_load"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// eventCode is the single letter used in trigger names.
func (k TriggerKind) eventCode() string {
	switch k {
	case KindInsert, KindInsertReload:
		return "i"
	case KindUpdate, KindUpdateReload:
		return "u"
	case KindDelete:
		return "d"
	default:
		return ""
	}
}

// ColumnTemplate renders one column of a category. Fallback is the
// large-object-safe variant; when empty, Primary is rendered with the
// fallback LOB prefix instead.
type ColumnTemplate struct {
	Primary  string
	Fallback string
}

// LobBinding describes the local binding the update trigger computes row
// images into, and the prefix that coerces a concatenation to a large object.
type LobBinding struct {
	Type    string
	ToLob   string
	Changed string
}

// TemplateSet is the complete trigger vocabulary for one dialect.
type TemplateSet struct {
	Dialect string

	// Encoding is what the blob and binary column expressions emit.
	Encoding BinaryEncoding

	Structural map[TriggerKind]string
	Columns    map[Category]ColumnTemplate

	// NewAlias and OldAlias name the row images inside a trigger body.
	NewAlias string
	OldAlias string

	// ColumnJoin separates rendered column expressions.
	ColumnJoin string

	// NumberConversion renders numeric columns; NumberText replaces it when
	// numbers are captured as locale-stable text.
	NumberConversion       string
	NumberText             string
	DefaultNumberPrecision string

	// Expressions supply dialect defaults for structural tokens such as
	// txIdExpression. They may reference base tokens like prefixName.
	Expressions map[string]string

	// CreateTime and CreateTimeZone render createTimeExpression; the zone
	// variant receives the configured zone through fmt.
	CreateTime     string
	CreateTimeZone string

	Inline   LobBinding // primary path, table without LOB columns
	Lob      LobBinding // primary path, table with LOB columns
	Fallback LobBinding

	// DropTrigger is rendered before each create when set.
	DropTrigger string
	// SplitStatements splits the rendered create text into separate statements.
	SplitStatements bool
}

// Clone returns a deep copy that callers may modify and revalidate.
func (s *TemplateSet) Clone() *TemplateSet {
	c := *s
	c.Structural = maps.Clone(s.Structural)
	c.Columns = maps.Clone(s.Columns)
	c.Expressions = maps.Clone(s.Expressions)
	return &c
}

// defaultTemplateSet is the shared layer beneath every dialect.
var defaultTemplateSet = TemplateSet{
	Columns: map[Category]ColumnTemplate{
		CategoryArray:    {Primary: "''"},
		CategoryGeometry: {Primary: "''"},
		CategoryXML:      {Primary: "''"},
	},
	Expressions: map[string]string{
		"externalSelect":               "null",
		"syncOnIncomingBatchCondition": "1=1",
	},
	ColumnJoin: "||','||",
	CreateTime: "CURRENT_TIMESTAMP",
	NewAlias:   "new",
	OldAlias:   "old",
}

// layer overlays a dialect set on the shared defaults. Dialect entries win.
func layer(base, dialect *TemplateSet) *TemplateSet {
	out := dialect.Clone()
	if out.Structural == nil {
		out.Structural = map[TriggerKind]string{}
	}
	if out.Columns == nil {
		out.Columns = map[Category]ColumnTemplate{}
	}
	if out.Expressions == nil {
		out.Expressions = map[string]string{}
	}
	for k, v := range base.Structural {
		if _, ok := out.Structural[k]; !ok {
			out.Structural[k] = v
		}
	}
	for k, v := range base.Columns {
		if _, ok := out.Columns[k]; !ok {
			out.Columns[k] = v
		}
	}
	for k, v := range base.Expressions {
		if _, ok := out.Expressions[k]; !ok {
			out.Expressions[k] = v
		}
	}
	if out.ColumnJoin == "" {
		out.ColumnJoin = base.ColumnJoin
	}
	if out.CreateTime == "" {
		out.CreateTime = base.CreateTime
	}
	if out.NewAlias == "" {
		out.NewAlias = base.NewAlias
	}
	if out.OldAlias == "" {
		out.OldAlias = base.OldAlias
	}
	return out
}

// structuralTokens is the reserved vocabulary of structural templates.
var structuralTokens = tokenSet(
	"triggerName", "schemaName", "tableName", "defaultSchema", "prefixName",
	"targetTableName", "triggerHistoryId", "channelExpression", "txIdExpression",
	"sourceNodeExpression", "externalSelect", "createTimeExpression",
	"syncOnInsertCondition", "syncOnUpdateCondition", "syncOnDeleteCondition",
	"syncOnIncomingBatchCondition",
	"columns", "oldColumns", "fallbackColumns", "fallbackOldColumns",
	"newKeys", "oldKeys",
	"dataHasChangedCondition", "fallbackDataHasChangedCondition",
	"lobType", "fallbackLobType", "toLob", "toLobAlways",
	"custom_before_insert_text", "custom_before_update_text", "custom_before_delete_text",
	"custom_on_insert_text", "custom_on_update_text", "custom_on_delete_text",
	"whereClause", "queryHint",
)

// columnTokens is the reserved vocabulary of column templates.
var columnTokens = tokenSet(
	"tableAlias", "columnName", "prefixName", "toLob",
	"numberConversion", "numberPrecisionSpec",
)

// expressionTokens may appear in dialect default expressions.
var expressionTokens = tokenSet("prefixName", "defaultSchema", "tableName", "schemaName", "targetTableName")

func tokenSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Validate checks that the set covers every structural kind and every column
// category, and that every template only uses reserved tokens.
func (s *TemplateSet) Validate() error {
	for _, k := range allKinds {
		text, ok := s.Structural[k]
		if !ok || strings.TrimSpace(text) == "" {
			return &TemplateError{Dialect: s.Dialect, Key: k.String(), Reason: "missing structural template"}
		}
		if err := checkTokens(s.Dialect, k.String(), text, structuralTokens); err != nil {
			return err
		}
	}
	for _, c := range allCategories {
		ct, ok := s.Columns[c]
		if !ok || strings.TrimSpace(ct.Primary) == "" {
			return &TemplateError{Dialect: s.Dialect, Key: "column/" + c.String(), Reason: "missing column template"}
		}
		if err := checkTokens(s.Dialect, "column/"+c.String(), ct.Primary, columnTokens); err != nil {
			return err
		}
		if err := checkTokens(s.Dialect, "column/"+c.String()+"/fallback", ct.Fallback, columnTokens); err != nil {
			return err
		}
	}
	for _, t := range []struct{ key, text string }{
		{"number_conversion", s.NumberConversion},
		{"number_text", s.NumberText},
	} {
		if t.text == "" {
			return &TemplateError{Dialect: s.Dialect, Key: t.key, Reason: "missing template"}
		}
		if err := checkTokens(s.Dialect, t.key, t.text, columnTokens); err != nil {
			return err
		}
	}
	for _, name := range []string{"txIdExpression", "sourceNodeExpression", "externalSelect", "syncOnIncomingBatchCondition"} {
		text, ok := s.Expressions[name]
		if !ok || text == "" {
			return &TemplateError{Dialect: s.Dialect, Key: name, Reason: "missing expression"}
		}
		if err := checkTokens(s.Dialect, name, text, expressionTokens); err != nil {
			return err
		}
	}
	if s.DropTrigger != "" {
		if err := checkTokens(s.Dialect, "drop_trigger", s.DropTrigger, structuralTokens); err != nil {
			return err
		}
	}
	for name, b := range map[string]LobBinding{"inline": s.Inline, "lob": s.Lob, "fallback": s.Fallback} {
		if b.Type == "" || b.Changed == "" {
			return &TemplateError{Dialect: s.Dialect, Key: "binding/" + name, Reason: "missing local type or change condition"}
		}
	}
	return nil
}

func checkTokens(dialect, key, text string, allowed map[string]bool) error {
	names, err := scanTokens(text)
	if err != nil {
		return &TemplateError{Dialect: dialect, Key: key, Reason: err.Error()}
	}
	for _, n := range names {
		if !allowed[n] {
			return &TemplateError{Dialect: dialect, Key: key, Reason: fmt.Sprintf("unknown token $(%s)", n)}
		}
	}
	return nil
}

// scanTokens returns the token names referenced by text in order.
func scanTokens(text string) ([]string, error) {
	var names []string
	err := walkTokens(text, func(literal string) {}, func(name string) error {
		names = append(names, name)
		return nil
	})
	return names, err
}

// render substitutes every $(name) token in text with ctx[name]. Values are
// inserted verbatim and never rescanned.
func render(text string, ctx map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	err := walkTokens(text, func(literal string) {
		b.WriteString(literal)
	}, func(name string) error {
		v, ok := ctx[name]
		if !ok {
			return &TemplateError{Key: name, Reason: "no value for token $(" + name + ")"}
		}
		b.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func walkTokens(text string, literal func(string), token func(string) error) error {
	for {
		i := strings.Index(text, "$(")
		if i < 0 {
			literal(text)
			return nil
		}
		literal(text[:i])
		rest := text[i+2:]
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return fmt.Errorf("unterminated token at %q", abbreviate(text[i:]))
		}
		name := rest[:end]
		if !isTokenName(name) {
			return fmt.Errorf("malformed token $(%s)", name)
		}
		if err := token(name); err != nil {
			return err
		}
		text = rest[end+1:]
	}
}

func isTokenName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func abbreviate(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}

// Catalog holds the validated template set of every supported dialect. It is
// read-only after construction.
type Catalog struct {
	sets map[string]*TemplateSet
}

// dialectTemplateSets lists the dialect layers registered at init time.
var dialectTemplateSets = map[string]*TemplateSet{}

func registerTemplateSet(s *TemplateSet) {
	dialectTemplateSets[s.Dialect] = s
}

func templateDialects() []string {
	names := make([]string, 0, len(dialectTemplateSets))
	for n := range dialectTemplateSets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewCatalog layers every registered dialect over the shared defaults and
// validates the result. Any gap is reported here, before a trigger is built.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{sets: make(map[string]*TemplateSet, len(dialectTemplateSets))}
	for name, s := range dialectTemplateSets {
		full := layer(&defaultTemplateSet, s)
		if err := full.Validate(); err != nil {
			return nil, err
		}
		c.sets[name] = full
	}
	return c, nil
}

// TemplateSet returns the layered set for a dialect.
func (c *Catalog) TemplateSet(dialect string) (*TemplateSet, error) {
	s, ok := c.sets[strings.ToLower(dialect)]
	if !ok {
		return nil, &TemplateError{Dialect: dialect, Key: "dialect", Reason: "no template set registered"}
	}
	return s, nil
}

// Structural returns the structural template for a dialect and kind.
func (c *Catalog) Structural(dialect string, kind TriggerKind) (string, error) {
	s, err := c.TemplateSet(dialect)
	if err != nil {
		return "", err
	}
	text, ok := s.Structural[kind]
	if !ok {
		return "", &TemplateError{Dialect: dialect, Key: kind.String(), Reason: "missing structural template"}
	}
	return text, nil
}

// Column returns the column templates for a dialect and category.
func (c *Catalog) Column(dialect string, cat Category) (ColumnTemplate, error) {
	s, err := c.TemplateSet(dialect)
	if err != nil {
		return ColumnTemplate{}, err
	}
	ct, ok := s.Columns[cat]
	if !ok {
		return ColumnTemplate{}, &TemplateError{Dialect: dialect, Key: "column/" + cat.String(), Reason: "missing column template"}
	}
	return ct, nil
}

// Dialects lists the dialects with a template set.
func (c *Catalog) Dialects() []string {
	names := make([]string, 0, len(c.sets))
	for n := range c.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
