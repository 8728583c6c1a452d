package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// IdentifierCase is how an engine stores unquoted identifiers.
type IdentifierCase int

const (
	CaseMixed IdentifierCase = iota
	CaseUpper
	CaseLower
)

// DatabaseInfo holds the per-engine facts the marshaller, cache and script
// composer consult. Engines differ only in this data.
type DatabaseInfo struct {
	Name string

	IdentifierCase      IdentifierCase
	IdentifierQuote     string
	MaxIdentifierLength int

	// Parse behavior.
	EmptyStringNulled             bool
	BlankCharColumnSpacePadded    bool
	NonBlankCharColumnSpacePadded bool
	DateOverridesToTimestamp      bool
	StripNullBytes                bool

	// NewArray builds the native array value for a text literal. Nil means
	// arrays are unsupported and parse to no value.
	NewArray func(col Column, value string) (any, error)

	// Script literal formatting.
	ValueQuote       string
	StatementDelim   string
	BackslashEscapes bool
	TimestampLayout  string
	TimeLayout       string
	DateLayout       string
	TimestampLiteral string // fmt verb receives the quoted value
	TimeLiteral      string
	DateLiteral      string
	TrueLiteral      string
	FalseLiteral     string
}

var databaseInfos = map[string]*DatabaseInfo{
	"oracle": {
		Name:                          "oracle",
		IdentifierCase:                CaseUpper,
		IdentifierQuote:               `"`,
		MaxIdentifierLength:           30,
		EmptyStringNulled:             true,
		BlankCharColumnSpacePadded:    true,
		NonBlankCharColumnSpacePadded: true,
		DateOverridesToTimestamp:      true,
		ValueQuote:                    "'",
		StatementDelim:                ";",
		TimestampLayout:               "2006-01-02 15:04:05.000000000",
		TimeLayout:                    "15:04:05.000000000",
		DateLayout:                    "2006-01-02",
		TimestampLiteral:              "to_timestamp(%s, 'YYYY-MM-DD HH24:MI:SS.FF9')",
		TimeLiteral:                   "to_timestamp(%s, 'HH24:MI:SS.FF9')",
		DateLiteral:                   "to_date(%s, 'YYYY-MM-DD')",
		TrueLiteral:                   "1",
		FalseLiteral:                  "0",
	},
	"postgres": {
		Name:                          "postgres",
		IdentifierCase:                CaseLower,
		IdentifierQuote:               `"`,
		MaxIdentifierLength:           63,
		BlankCharColumnSpacePadded:    true,
		NonBlankCharColumnSpacePadded: true,
		StripNullBytes:                true,
		NewArray:                      pgArrayValue,
		ValueQuote:                    "'",
		StatementDelim:                ";",
		TimestampLayout:               "2006-01-02 15:04:05.000000",
		TimeLayout:                    "15:04:05.000000",
		DateLayout:                    "2006-01-02",
		TimestampLiteral:              "timestamp %s",
		TimeLiteral:                   "time %s",
		DateLiteral:                   "date %s",
		TrueLiteral:                   "true",
		FalseLiteral:                  "false",
	},
	"mysql": {
		Name:                "mysql",
		IdentifierCase:      CaseMixed,
		IdentifierQuote:     "`",
		MaxIdentifierLength: 64,
		ValueQuote:          "'",
		StatementDelim:      ";",
		BackslashEscapes:    true,
		TimestampLayout:     "2006-01-02 15:04:05.000000",
		TimeLayout:          "15:04:05.000000",
		DateLayout:          "2006-01-02",
		TimestampLiteral:    "timestamp %s",
		TimeLiteral:         "time %s",
		DateLiteral:         "date %s",
		TrueLiteral:         "1",
		FalseLiteral:        "0",
	},
	"sqlite": {
		Name:                "sqlite",
		IdentifierCase:      CaseMixed,
		IdentifierQuote:     `"`,
		MaxIdentifierLength: 0,
		ValueQuote:          "'",
		StatementDelim:      ";",
		TimestampLayout:     "2006-01-02 15:04:05.000",
		TimeLayout:          "15:04:05.000",
		DateLayout:          "2006-01-02",
		TimestampLiteral:    "%s",
		TimeLiteral:         "%s",
		DateLiteral:         "%s",
		TrueLiteral:         "1",
		FalseLiteral:        "0",
	},
}

// lookupDatabaseInfo returns the registered info for a dialect name.
func lookupDatabaseInfo(dialect string) (*DatabaseInfo, error) {
	info, ok := databaseInfos[strings.ToLower(dialect)]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q (must be one of: %s)", dialect, strings.Join(dialectNames(), ", "))
	}
	return info, nil
}

func dialectNames() []string {
	names := make([]string, 0, len(databaseInfos))
	for n := range databaseInfos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// QuoteIdentifier quotes name with the engine's identifier quote, doubling
// embedded quote characters.
func (d *DatabaseInfo) QuoteIdentifier(name string) string {
	q := d.IdentifierQuote
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// cleanText applies engine-specific scrubbing to text values before they are
// handed to a driver.
func (d *DatabaseInfo) cleanText(s string) string {
	if d.StripNullBytes && strings.IndexByte(s, 0) >= 0 {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

// pgArrayValue decodes a PostgreSQL array literal such as {a,"b c",NULL}
// into a slice of nullable strings using pgx's text array codec.
func pgArrayValue(_ Column, value string) (any, error) {
	m := pgtype.NewMap()
	var out []*string
	if err := m.Scan(pgtype.TextArrayOID, pgtype.TextFormatCode, []byte(value), &out); err != nil {
		return nil, fmt.Errorf("decode array literal: %w", err)
	}
	return out, nil
}
