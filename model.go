package main

import (
	"strings"
)

// Category is the semantic type category a column is rendered and parsed by.
type Category int

const (
	CategoryText Category = iota
	CategoryNumeric
	CategoryBoolean
	CategoryDate
	CategoryTime
	CategoryTimestamp
	CategoryTimestampTZ
	CategoryClob
	CategoryBlob
	CategoryBinary
	CategoryArray
	CategoryGeometry
	CategoryXML
)

// allCategories lists every category in declaration order. Template sets are
// validated against this list.
var allCategories = []Category{
	CategoryText, CategoryNumeric, CategoryBoolean, CategoryDate, CategoryTime,
	CategoryTimestamp, CategoryTimestampTZ, CategoryClob, CategoryBlob,
	CategoryBinary, CategoryArray, CategoryGeometry, CategoryXML,
}

var categoryNames = map[Category]string{
	CategoryText:        "text",
	CategoryNumeric:     "numeric",
	CategoryBoolean:     "boolean",
	CategoryDate:        "date",
	CategoryTime:        "time",
	CategoryTimestamp:   "timestamp",
	CategoryTimestampTZ: "timestamptz",
	CategoryClob:        "clob",
	CategoryBlob:        "blob",
	CategoryBinary:      "binary",
	CategoryArray:       "array",
	CategoryGeometry:    "geometry",
	CategoryXML:         "xml",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

// IsLob reports whether values of the category may exceed inline literal limits.
func (c Category) IsLob() bool {
	return c == CategoryClob || c == CategoryBlob
}

// NativeType is the engine-independent code for a column's declared type,
// filled in by the metadata readers.
type NativeType int

const (
	TypeOther NativeType = iota
	TypeChar
	TypeVarchar
	TypeLongVarchar
	TypeNChar
	TypeNVarchar
	TypeLongNVarchar
	TypeClob
	TypeNClob
	TypeUUID
	TypeTinyInt
	TypeSmallInt
	TypeInteger
	TypeBigInt
	TypeBit
	TypeNumeric
	TypeDecimal
	TypeReal
	TypeFloat
	TypeDouble
	TypeBoolean
	TypeDate
	TypeTime
	TypeTimestamp
	TypeTimestampTZ
	TypeBinary
	TypeVarBinary
	TypeLongVarBinary
	TypeBlob
	// TypeNText is SQL Server's legacy wide-character type, which the replication
	// layer carries through the binary path.
	TypeNText
	TypeArray
	TypeGeometry
	TypeXML
)

var nativeTypeNames = map[NativeType]string{
	TypeOther:         "OTHER",
	TypeChar:          "CHAR",
	TypeVarchar:       "VARCHAR",
	TypeLongVarchar:   "LONGVARCHAR",
	TypeNChar:         "NCHAR",
	TypeNVarchar:      "NVARCHAR",
	TypeLongNVarchar:  "LONGNVARCHAR",
	TypeClob:          "CLOB",
	TypeNClob:         "NCLOB",
	TypeUUID:          "UUID",
	TypeTinyInt:       "TINYINT",
	TypeSmallInt:      "SMALLINT",
	TypeInteger:       "INTEGER",
	TypeBigInt:        "BIGINT",
	TypeBit:           "BIT",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeReal:          "REAL",
	TypeFloat:         "FLOAT",
	TypeDouble:        "DOUBLE",
	TypeBoolean:       "BOOLEAN",
	TypeDate:          "DATE",
	TypeTime:          "TIME",
	TypeTimestamp:     "TIMESTAMP",
	TypeTimestampTZ:   "TIMESTAMP_WITH_TIMEZONE",
	TypeBinary:        "BINARY",
	TypeVarBinary:     "VARBINARY",
	TypeLongVarBinary: "LONGVARBINARY",
	TypeBlob:          "BLOB",
	TypeNText:         "NTEXT",
	TypeArray:         "ARRAY",
	TypeGeometry:      "GEOMETRY",
	TypeXML:           "XML",
}

func (t NativeType) String() string {
	if s, ok := nativeTypeNames[t]; ok {
		return s
	}
	return "OTHER"
}

// parseNativeType is the inverse of NativeType.String, used by the schema file source.
func parseNativeType(name string) (NativeType, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, s := range nativeTypeNames {
		if s == upper {
			return t, true
		}
	}
	return TypeOther, false
}

// categoryFor returns the semantic category a native type is rendered with.
func categoryFor(t NativeType) Category {
	switch t {
	case TypeChar, TypeVarchar, TypeNChar, TypeNVarchar, TypeUUID, TypeOther:
		return CategoryText
	case TypeLongVarchar, TypeLongNVarchar, TypeClob, TypeNClob:
		return CategoryClob
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt, TypeBit,
		TypeNumeric, TypeDecimal, TypeReal, TypeFloat, TypeDouble:
		return CategoryNumeric
	case TypeBoolean:
		return CategoryBoolean
	case TypeDate:
		return CategoryDate
	case TypeTime:
		return CategoryTime
	case TypeTimestamp:
		return CategoryTimestamp
	case TypeTimestampTZ:
		return CategoryTimestampTZ
	case TypeBlob, TypeLongVarBinary, TypeNText:
		return CategoryBlob
	case TypeBinary, TypeVarBinary:
		return CategoryBinary
	case TypeArray:
		return CategoryArray
	case TypeGeometry:
		return CategoryGeometry
	case TypeXML:
		return CategoryXML
	default:
		return CategoryText
	}
}

// Column describes one column of a captured table.
type Column struct {
	Name       string
	Category   Category
	Type       NativeType
	TypeName   string // declared type as reported by the engine, e.g. "varchar(20)"
	Size       int
	Scale      int
	Required   bool
	PrimaryKey bool
}

// NewColumn builds a column whose category is derived from its native type.
func NewColumn(name string, typ NativeType, size, scale int, required, pk bool) Column {
	return Column{
		Name:       name,
		Category:   categoryFor(typ),
		Type:       typ,
		TypeName:   strings.ToLower(typ.String()),
		Size:       size,
		Scale:      scale,
		Required:   required,
		PrimaryKey: pk,
	}
}

// IsText reports whether parse treats the column as character data.
func (c Column) IsText() bool {
	return c.Category == CategoryText || c.Category == CategoryClob
}

// IsBinary reports whether the column's values travel through the binary encoding.
func (c Column) IsBinary() bool {
	return c.Category == CategoryBlob || c.Category == CategoryBinary
}

// IsInteger reports whether numeric text should parse to an int64.
func (c Column) IsInteger() bool {
	switch c.Type {
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt, TypeBit:
		return true
	}
	return false
}

// Table is an immutable snapshot of one table's metadata. The cache replaces
// snapshots wholesale; consumers must not mutate them.
type Table struct {
	Catalog string
	Schema  string
	Name    string
	Columns []Column
}

// FullyQualifiedName returns catalog.schema.name, skipping empty parts.
func (t *Table) FullyQualifiedName() string {
	return fullyQualifiedName(t.Catalog, t.Schema, t.Name)
}

func fullyQualifiedName(catalog, schema, name string) string {
	parts := make([]string, 0, 3)
	if catalog != "" {
		parts = append(parts, catalog)
	}
	if schema != "" {
		parts = append(parts, schema)
	}
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

// PrimaryKeyColumns returns the key columns in declared order. A table with
// no declared key is keyed by all of its columns.
func (t *Table) PrimaryKeyColumns() []Column {
	var pk []Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	if len(pk) == 0 {
		return t.Columns
	}
	return pk
}

// LobColumns returns the CLOB and BLOB columns.
func (t *Table) LobColumns() []Column {
	var lobs []Column
	for _, c := range t.Columns {
		if c.Category.IsLob() {
			lobs = append(lobs, c)
		}
	}
	return lobs
}

// Column looks up a column by name, case-insensitively.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// OrderColumns returns the metadata for names in the given order. Names the
// table does not know yield a column with only the name set, which parse
// passes through as text.
func (t *Table) OrderColumns(names []string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		if c, ok := t.Column(n); ok {
			cols[i] = c
		} else {
			cols[i] = Column{Name: n, Category: CategoryText, Type: TypeOther}
		}
	}
	return cols
}

// ColumnNames returns the names of all columns in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// EventType is the event code written to the change log.
type EventType string

const (
	EventInsert EventType = "I"
	EventUpdate EventType = "U"
	EventDelete EventType = "D"
	EventReload EventType = "R"
)

// CapturedRow mirrors one row of the change log table.
type CapturedRow struct {
	TableName     string
	EventType     EventType
	TriggerHistID int
	PKData        *string
	RowData       *string
	OldData       *string
	ChannelID     string
	TransactionID *string
	SourceNodeID  *string
	ExternalData  *string
	CreateTime    string
}

// Validate checks the log row invariants a firing trigger guarantees.
func (r CapturedRow) Validate() error {
	if r.TableName == "" {
		return &CaptureError{Reason: "table_name is empty"}
	}
	if r.TriggerHistID == 0 {
		return &CaptureError{Table: r.TableName, Reason: "trigger_hist_id is not set"}
	}
	switch r.EventType {
	case EventInsert:
		if r.RowData == nil {
			return &CaptureError{Table: r.TableName, Reason: "insert without row_data"}
		}
	case EventUpdate:
		if r.RowData == nil || r.OldData == nil {
			return &CaptureError{Table: r.TableName, Reason: "update without row_data and old_data"}
		}
	case EventDelete:
		if r.OldData == nil && r.PKData == nil {
			return &CaptureError{Table: r.TableName, Reason: "delete without old_data or pk_data"}
		}
	case EventReload:
		if r.PKData == nil {
			return &CaptureError{Table: r.TableName, Reason: "reload without pk_data"}
		}
	default:
		return &CaptureError{Table: r.TableName, Reason: "unknown event type " + string(r.EventType)}
	}
	return nil
}
