package main

import (
	"fmt"
	"strings"
)

// EncodeRowData joins captured-row strings into the comma-separated row_data
// format written by the capture triggers. Each value is double-quoted with
// backslash and double quote escaped. A null value is an empty unquoted field.
func EncodeRowData(values []*string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		if v == nil {
			continue
		}
		b.WriteByte('"')
		s := *v
		for j := 0; j < len(s); j++ {
			if s[j] == '\\' || s[j] == '"' {
				b.WriteByte('\\')
			}
			b.WriteByte(s[j])
		}
		b.WriteByte('"')
	}
	return b.String()
}

// DecodeRowData splits row_data text back into captured-row strings.
func DecodeRowData(text string) ([]*string, error) {
	var out []*string
	i := 0
	for {
		if i >= len(text) || text[i] == ',' {
			out = append(out, nil)
		} else if text[i] != '"' {
			return nil, fmt.Errorf("row data: expected '\"' at offset %d", i)
		} else {
			var b strings.Builder
			i++
			closed := false
			for i < len(text) {
				c := text[i]
				if c == '\\' && i+1 < len(text) {
					b.WriteByte(text[i+1])
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("row data: unterminated value")
			}
			s := b.String()
			out = append(out, &s)
		}
		if i >= len(text) {
			return out, nil
		}
		if text[i] != ',' {
			return nil, fmt.Errorf("row data: expected ',' at offset %d", i)
		}
		i++
	}
}
