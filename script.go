package main

import (
	"fmt"
	"strings"
	"time"
)

// ReplaceSQL inlines row values into the positional ? placeholders of sql, in
// cols order, and appends the statement delimiter once. Placeholders inside
// quoted literals or identifiers are left alone. The number of placeholders
// must match the number of columns.
func (p *Platform) ReplaceSQL(sql string, enc BinaryEncoding, cols []Column, row map[string]any, useVariableDates bool) (string, error) {
	positions := placeholderPositions(sql)
	if len(positions) != len(cols) {
		return "", fmt.Errorf("statement has %d placeholders for %d columns", len(positions), len(cols))
	}

	now := p.now()
	var b strings.Builder
	b.Grow(len(sql) + 16*len(cols))
	last := 0
	for i, pos := range positions {
		col := cols[i]
		v, _ := rowValue(row, col.Name)
		lit, err := p.literal(col, v, enc, useVariableDates, now)
		if err != nil {
			return "", p.conversionError(col, fmt.Sprint(v), err)
		}
		b.WriteString(sql[last:pos])
		b.WriteString(lit)
		last = pos + 1
	}
	b.WriteString(sql[last:])

	out := strings.TrimRight(b.String(), " \t\r\n")
	if delim := p.info.StatementDelim; delim != "" && !strings.HasSuffix(out, delim) {
		out += delim
	}
	return out, nil
}

// placeholderPositions returns the byte offsets of ? characters outside
// single-quoted literals and double-quoted or backquoted identifiers.
func placeholderPositions(sql string) []int {
	var positions []int
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?':
			positions = append(positions, i)
		}
	}
	return positions
}

// literal renders one value as a SQL literal for this engine.
func (p *Platform) literal(col Column, v any, enc BinaryEncoding, useVariableDates bool, now time.Time) (string, error) {
	if v == nil {
		return "null", nil
	}
	switch col.Category {
	case CategoryNumeric:
		return scalarString(v)
	case CategoryBoolean:
		var truthy bool
		switch x := v.(type) {
		case bool:
			truthy = x
		default:
			s, err := scalarString(v)
			if err != nil {
				return "", err
			}
			truthy = s == "1" || strings.EqualFold(s, "true")
		}
		if truthy {
			return p.info.TrueLiteral, nil
		}
		return p.info.FalseLiteral, nil
	case CategoryDate, CategoryTime, CategoryTimestamp, CategoryTimestampTZ:
		t, err := temporalValue(v)
		if err != nil {
			return "", err
		}
		if useVariableDates {
			return p.quoteText(variableDate(t, now)), nil
		}
		switch col.Category {
		case CategoryTime:
			return fmt.Sprintf(p.info.TimeLiteral, p.quoteText(t.Format(p.info.TimeLayout))), nil
		case CategoryDate:
			if p.info.DateOverridesToTimestamp {
				return fmt.Sprintf(p.info.TimestampLiteral, p.quoteText(t.Format(p.info.TimestampLayout))), nil
			}
			return fmt.Sprintf(p.info.DateLiteral, p.quoteText(t.Format(p.info.DateLayout))), nil
		case CategoryTimestampTZ:
			return p.quoteText(t.Format(timestampTZLayout)), nil
		default:
			return fmt.Sprintf(p.info.TimestampLiteral, p.quoteText(t.Format(p.info.TimestampLayout))), nil
		}
	case CategoryBlob, CategoryBinary:
		b, err := bytesValue(v)
		if err != nil {
			return "", err
		}
		return p.quoteText(encodeBinary(b, enc)), nil
	default:
		s, err := stringValue(col, v, enc, false, now)
		if err != nil {
			return "", err
		}
		return p.quoteText(p.info.cleanText(s)), nil
	}
}

// quoteText wraps s in the engine's value quote, doubling embedded quotes
// and, where the engine treats backslash as an escape, backslashes.
func (p *Platform) quoteText(s string) string {
	q := p.info.ValueQuote
	if p.info.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	s = strings.ReplaceAll(s, q, q+q)
	return q + s + q
}
