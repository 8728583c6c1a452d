package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNativeType(t *testing.T) {
	for typ := range nativeTypeNames {
		got, ok := parseNativeType(typ.String())
		if !ok || got != typ {
			t.Errorf("parseNativeType(%q) = %s, %t", typ.String(), got, ok)
		}
	}
	if got, ok := parseNativeType(" timestamp_with_timezone "); !ok || got != TypeTimestampTZ {
		t.Errorf("parseNativeType is not case-insensitive: %s, %t", got, ok)
	}
	if _, ok := parseNativeType("money"); ok {
		t.Error("parseNativeType(money) should fail")
	}
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		typ  NativeType
		want Category
	}{
		{TypeVarchar, CategoryText},
		{TypeUUID, CategoryText},
		{TypeNClob, CategoryClob},
		{TypeBit, CategoryNumeric},
		{TypeBoolean, CategoryBoolean},
		{TypeDate, CategoryDate},
		{TypeTimestampTZ, CategoryTimestampTZ},
		{TypeNText, CategoryBlob},
		{TypeVarBinary, CategoryBinary},
		{TypeArray, CategoryArray},
		{TypeGeometry, CategoryGeometry},
		{TypeXML, CategoryXML},
		{TypeOther, CategoryText},
	}
	for _, tt := range tests {
		if got := categoryFor(tt.typ); got != tt.want {
			t.Errorf("categoryFor(%s) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestTableColumns(t *testing.T) {
	tbl := &Table{Schema: "public", Name: "notes", Columns: []Column{
		NewColumn("id", TypeBigInt, 0, 0, true, false),
		NewColumn("body", TypeClob, 0, 0, false, false),
		NewColumn("img", TypeBlob, 0, 0, false, false),
	}}

	assert.Equal(t, "public.notes", tbl.FullyQualifiedName())
	assert.Equal(t, tbl.Columns, tbl.PrimaryKeyColumns(), "no declared key uses every column")
	assert.Equal(t, []string{"body", "img"}, (&Table{Columns: tbl.LobColumns()}).ColumnNames())

	tbl.Columns[0].PrimaryKey = true
	require.Len(t, tbl.PrimaryKeyColumns(), 1)

	ordered := tbl.OrderColumns([]string{"IMG", "extra", "id"})
	assert.Equal(t, "img", ordered[0].Name)
	assert.Equal(t, Column{Name: "extra", Category: CategoryText, Type: TypeOther}, ordered[1])
	assert.Equal(t, TypeBigInt, ordered[2].Type)
	assert.True(t, ordered[2].IsInteger())
	assert.True(t, ordered[0].IsBinary())
}

func TestCapturedRowValidate(t *testing.T) {
	data := strPtr(`"1"`)
	tests := []struct {
		name   string
		row    CapturedRow
		reason string
	}{
		{"insert", CapturedRow{TableName: "t", EventType: EventInsert, TriggerHistID: 1, RowData: data}, ""},
		{"update", CapturedRow{TableName: "t", EventType: EventUpdate, TriggerHistID: 1, RowData: data, OldData: data}, ""},
		{"delete by pk", CapturedRow{TableName: "t", EventType: EventDelete, TriggerHistID: 1, PKData: data}, ""},
		{"reload", CapturedRow{TableName: "t", EventType: EventReload, TriggerHistID: 1, PKData: data}, ""},
		{"no table", CapturedRow{EventType: EventInsert, TriggerHistID: 1, RowData: data}, "table_name is empty"},
		{"no history", CapturedRow{TableName: "t", EventType: EventInsert, RowData: data}, "trigger_hist_id is not set"},
		{"insert without data", CapturedRow{TableName: "t", EventType: EventInsert, TriggerHistID: 1}, "insert without row_data"},
		{"update without old", CapturedRow{TableName: "t", EventType: EventUpdate, TriggerHistID: 1, RowData: data}, "update without row_data and old_data"},
		{"delete without keys", CapturedRow{TableName: "t", EventType: EventDelete, TriggerHistID: 1}, "delete without old_data or pk_data"},
		{"reload without keys", CapturedRow{TableName: "t", EventType: EventReload, TriggerHistID: 1, RowData: data}, "reload without pk_data"},
		{"unknown event", CapturedRow{TableName: "t", EventType: "X", TriggerHistID: 1}, "unknown event type X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var ce *CaptureError
			require.True(t, errors.As(err, &ce), "error = %v", err)
			assert.Equal(t, tt.reason, ce.Reason)
		})
	}

	err := CapturedRow{TableName: "t", EventType: EventInsert}.Validate()
	assert.EqualError(t, err, "captured row for t: trigger_hist_id is not set")
}
