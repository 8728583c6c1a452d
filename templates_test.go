package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"mysql", "oracle", "postgres"}, c.Dialects())

	for _, d := range c.Dialects() {
		for _, k := range allKinds {
			text, err := c.Structural(d, k)
			require.NoError(t, err, "%s %s", d, k)
			assert.NotEmpty(t, text)
		}
		for _, cat := range allCategories {
			ct, err := c.Column(d, cat)
			require.NoError(t, err, "%s %s", d, cat)
			assert.NotEmpty(t, ct.Primary)
		}
	}
}

func TestCatalogUnknownDialect(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	_, err = c.TemplateSet("db2")
	var te *TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "db2", te.Dialect)

	_, err = c.Column("db2", CategoryText)
	require.Error(t, err)
}

func TestLayerKeepsDialectEntries(t *testing.T) {
	set := layer(&defaultTemplateSet, mysqlTemplateSet())

	// mysql has no array template of its own and inherits the default.
	assert.Equal(t, "''", set.Columns[CategoryArray].Primary)
	assert.Equal(t, ",',',", set.ColumnJoin)
	assert.Equal(t, "null", set.Expressions["externalSelect"])
	assert.Equal(t, "@$(prefixName)_node_id", set.Expressions["sourceNodeExpression"])

	// Layering must not write through to the registered layer.
	_, err := NewCatalog()
	require.NoError(t, err)
	_, ok := dialectTemplateSets["mysql"].Columns[CategoryArray]
	assert.False(t, ok)
}

func TestTemplateSetValidate(t *testing.T) {
	valid := layer(&defaultTemplateSet, postgresTemplateSet())
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(s *TemplateSet)
		wantKey string
	}{
		{
			name:    "missing category",
			mutate:  func(s *TemplateSet) { delete(s.Columns, CategoryTimestampTZ) },
			wantKey: "column/timestamptz",
		},
		{
			name:    "missing structural kind",
			mutate:  func(s *TemplateSet) { delete(s.Structural, KindUpdateReload) },
			wantKey: "update_reload",
		},
		{
			name: "unknown structural token",
			mutate: func(s *TemplateSet) {
				s.Structural[KindDelete] = "insert into $(prefixName)_data values ($(rowCount))"
			},
			wantKey: "delete",
		},
		{
			name: "structural token in column template",
			mutate: func(s *TemplateSet) {
				s.Columns[CategoryText] = ColumnTemplate{Primary: "$(triggerName)"}
			},
			wantKey: "column/text",
		},
		{
			name: "malformed token",
			mutate: func(s *TemplateSet) {
				s.Columns[CategoryBlob] = ColumnTemplate{Primary: "encode($(tableAlias.x, 'hex')"}
			},
			wantKey: "column/blob",
		},
		{
			name:    "missing number conversion",
			mutate:  func(s *TemplateSet) { s.NumberConversion = "" },
			wantKey: "number_conversion",
		},
		{
			name:    "missing expression",
			mutate:  func(s *TemplateSet) { delete(s.Expressions, "txIdExpression") },
			wantKey: "txIdExpression",
		},
		{
			name:    "missing change condition",
			mutate:  func(s *TemplateSet) { s.Fallback.Changed = "" },
			wantKey: "binding/fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid.Clone()
			tt.mutate(s)
			err := s.Validate()
			var te *TemplateError
			require.True(t, errors.As(err, &te), "error = %v", err)
			assert.Equal(t, "postgres", te.Dialect)
			assert.Equal(t, tt.wantKey, te.Key)
		})
	}
}

func TestRender(t *testing.T) {
	ctx := map[string]string{
		"a":     "$(b)",
		"b":     "never",
		"empty": "",
	}

	got, err := render("x $(a) y $(empty)z", ctx)
	require.NoError(t, err)
	assert.Equal(t, "x $(b) y z", got, "values are not rescanned")

	got, err = render("no tokens; $ and ( stay", ctx)
	require.NoError(t, err)
	assert.Equal(t, "no tokens; $ and ( stay", got)

	_, err = render("$(missing)", ctx)
	var te *TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "missing", te.Key)

	_, err = render("$(bad name)", ctx)
	assert.ErrorContains(t, err, "malformed token")

	_, err = render("tail $(open", ctx)
	assert.ErrorContains(t, err, "unterminated token")
}

func TestTriggerKindNames(t *testing.T) {
	assert.Equal(t, "insert_reload", KindInsertReload.String())
	assert.Equal(t, "i", KindInsertReload.eventCode())
	assert.Equal(t, "u", KindUpdate.eventCode())
	assert.Equal(t, "d", KindDelete.eventCode())
	assert.Equal(t, "", KindInitialLoad.eventCode())
}
