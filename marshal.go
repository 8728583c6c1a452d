package main

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// RequiredFieldNullSubstitute replaces a null on a required text column.
const RequiredFieldNullSubstitute = " "

// Canonical text layouts of the captured row format.
const (
	timestampLayout   = "2006-01-02 15:04:05.000000000"
	timestampTZLayout = "2006-01-02 15:04:05.000000000 -07:00"
	timeLayout        = "15:04:05.000000000"
	dateLayout        = "2006-01-02"
)

// Accepted layouts when parsing, first match wins. Fractional seconds are
// accepted after the seconds field even when the layout omits them.
var (
	timestampPatterns   = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02", time.RFC3339Nano}
	timePatterns        = []string{"15:04:05", "2006-01-02 15:04:05"}
	timestampTZPatterns = []string{"2006-01-02 15:04:05 -07:00", "2006-01-02 15:04:05 -0700", "2006-01-02 15:04:05Z07:00", time.RFC3339Nano}
)

const variableDatePrefix = "${curdate"

// StringValues serializes a native row into captured-row strings, one per
// column in cols order. A nil result entry is a null value. With
// useVariableDates, temporal values become ${curdate±millis} offsets from now.
func (p *Platform) StringValues(enc BinaryEncoding, cols []Column, row map[string]any, useVariableDates bool) ([]*string, error) {
	now := p.now()
	out := make([]*string, len(cols))
	for i, col := range cols {
		v, ok := rowValue(row, col.Name)
		if !ok || v == nil {
			continue
		}
		s, err := stringValue(col, v, enc, useVariableDates, now)
		if err != nil {
			return nil, p.conversionError(col, fmt.Sprint(v), err)
		}
		out[i] = &s
	}
	return out, nil
}

// rowValue finds a column in a row, preferring an exact name match.
func rowValue(row map[string]any, name string) (any, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func stringValue(col Column, v any, enc BinaryEncoding, useVariableDates bool, now time.Time) (string, error) {
	switch col.Category {
	case CategoryDate, CategoryTime, CategoryTimestamp, CategoryTimestampTZ:
		t, err := temporalValue(v)
		if err != nil {
			return "", err
		}
		if useVariableDates {
			return variableDate(t, now), nil
		}
		return formatTemporal(col.Category, t), nil
	case CategoryBlob, CategoryBinary:
		b, err := bytesValue(v)
		if err != nil {
			return "", err
		}
		return encodeBinary(b, enc), nil
	case CategoryBoolean:
		switch b := v.(type) {
		case bool:
			if b {
				return "1", nil
			}
			return "0", nil
		}
		return scalarString(v)
	case CategoryArray:
		switch v.(type) {
		case string, []byte:
			return scalarString(v)
		}
		buf, err := pgtype.NewMap().Encode(pgtype.TextArrayOID, pgtype.TextFormatCode, v, nil)
		if err != nil {
			return "", fmt.Errorf("encode array: %w", err)
		}
		return string(buf), nil
	default:
		return scalarString(v)
	}
}

// scalarString renders text and numeric values exactly.
func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case decimal.Decimal:
		return x.String(), nil
	case *big.Int:
		return x.String(), nil
	case uuid.UUID:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func temporalValue(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case civil.Date:
		return x.In(time.UTC), nil
	case civil.DateTime:
		return x.In(time.UTC), nil
	case civil.Time:
		return time.Date(1970, 1, 1, x.Hour, x.Minute, x.Second, x.Nanosecond, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported temporal value type %T", v)
	}
}

func bytesValue(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case uuid.UUID:
		return x[:], nil
	default:
		return nil, fmt.Errorf("unsupported binary value type %T", v)
	}
}

func formatTemporal(cat Category, t time.Time) string {
	switch cat {
	case CategoryDate:
		return t.Format(dateLayout)
	case CategoryTime:
		return t.Format(timeLayout)
	case CategoryTimestampTZ:
		return t.Format(timestampTZLayout)
	default:
		return t.Format(timestampLayout)
	}
}

// variableDate renders t as a signed millisecond offset from now, floored so
// the parsed value is never later than t.
func variableDate(t, now time.Time) string {
	d := t.Sub(now)
	diff := int64(d / time.Millisecond)
	if d%time.Millisecond < 0 {
		diff--
	}
	if diff < 0 {
		return fmt.Sprintf("%s-%d}", variableDatePrefix, -diff)
	}
	return fmt.Sprintf("%s+%d}", variableDatePrefix, diff)
}

// parseVariableDate decodes ${curdate<sign><millis>} relative to now.
func parseVariableDate(value string, now time.Time) (time.Time, error) {
	body, ok := strings.CutPrefix(value, variableDatePrefix)
	if !ok || !strings.HasSuffix(body, "}") {
		return time.Time{}, fmt.Errorf("malformed relative date %q", value)
	}
	body = strings.TrimSuffix(body, "}")
	if body == "" {
		return now, nil
	}
	if body[0] != '+' && body[0] != '-' {
		return time.Time{}, fmt.Errorf("relative date %q has no sign", value)
	}
	ms, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("relative date offset %q: %w", body, err)
	}
	return now.Add(time.Duration(ms) * time.Millisecond), nil
}

// ObjectValues parses captured-row strings into native values for the given
// ordered columns. Values beyond the column list are ignored. Any value that
// fails to convert aborts the whole row.
//
// Result types: string for text, int64 for integer types, decimal.Decimal for
// other numerics, bool, []byte for binary, time.Time for timestamps (and
// dates on engines where dates carry time), civil.Date, civil.Time, and the
// engine's array value or nil.
func (p *Platform) ObjectValues(enc BinaryEncoding, values []*string, cols []Column, useVariableDates bool) ([]any, error) {
	if values == nil {
		return nil, nil
	}
	n := min(len(values), len(cols))
	out := make([]any, n)
	now := p.now()
	for i := 0; i < n; i++ {
		v, err := p.objectValue(enc, values[i], cols[i], useVariableDates, now)
		if err != nil {
			raw := ""
			if values[i] != nil {
				raw = *values[i]
			}
			return nil, p.conversionError(cols[i], raw, err)
		}
		out[i] = v
	}
	return out, nil
}

func (p *Platform) objectValue(enc BinaryEncoding, value *string, col Column, useVariableDates bool, now time.Time) (any, error) {
	var out any
	if value != nil {
		out = *value
	}
	nulled := value == nil || (p.info.EmptyStringNulled && *value == "")
	if nulled && col.Required && col.IsText() {
		out = RequiredFieldNullSubstitute
	}
	if value == nil {
		return out, nil
	}
	s := *value

	switch {
	case col.Category == CategoryDate || col.Category == CategoryTime ||
		col.Category == CategoryTimestamp || col.Category == CategoryTimestampTZ:
		t, err := p.parseTemporal(col, s, useVariableDates, now)
		if err != nil {
			return nil, err
		}
		out = t
	case col.Type == TypeChar || col.Type == TypeNChar:
		if padded, ok := p.padChar(s, col); ok {
			out = padded
		}
	case col.IsInteger():
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, err
		}
		out = i
	case col.Category == CategoryNumeric:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
		if err != nil {
			return nil, err
		}
		out = d
	case col.Category == CategoryBoolean:
		out = s == "1"
	case col.IsBinary():
		b, err := decodeBinary(s, enc)
		if err != nil {
			return nil, err
		}
		out = b
	case col.Category == CategoryArray:
		if p.info.NewArray == nil {
			return nil, nil
		}
		a, err := p.info.NewArray(col, s)
		if err != nil {
			return nil, err
		}
		out = a
	}

	if str, ok := out.(string); ok {
		out = p.info.cleanText(str)
	}
	return out, nil
}

// padChar right-pads fixed-width character values to the declared size when
// the engine pads them. ok is false when the engine does not pad this value.
func (p *Platform) padChar(s string, col Column) (string, bool) {
	blank := strings.TrimSpace(s) == ""
	if !(blank && p.info.BlankCharColumnSpacePadded) && !(!blank && p.info.NonBlankCharColumnSpacePadded) {
		return "", false
	}
	if n := utf8.RuneCountInString(s); n < col.Size {
		return s + strings.Repeat(" ", col.Size-n), true
	}
	return s, true
}

func (p *Platform) parseTemporal(col Column, value string, useVariableDates bool, now time.Time) (any, error) {
	useTimestamp := col.Category == CategoryTimestamp || col.Category == CategoryTimestampTZ ||
		(col.Category == CategoryDate && p.info.DateOverridesToTimestamp)

	var t time.Time
	var err error
	switch {
	case useVariableDates && strings.HasPrefix(value, variableDatePrefix):
		t, err = parseVariableDate(value, now)
	case col.Category == CategoryTimestampTZ:
		t, err = parseFirst(value, timestampTZPatterns)
	case col.Category == CategoryTime:
		t, err = parseFirst(value, timePatterns)
	default:
		t, err = parseFirst(value, timestampPatterns)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case useTimestamp:
		return t, nil
	case col.Category == CategoryTime:
		return civil.TimeOf(t), nil
	default:
		return civil.DateOf(t), nil
	}
}

func parseFirst(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", value)
}

func (p *Platform) conversionError(col Column, raw string, err error) error {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	ce = &ConversionError{
		Column:  col.Name,
		Type:    col.Type.String(),
		Preview: previewValue(raw),
		Err:     err,
	}
	p.logger.Error("could not convert value", "value", ce.Preview, "column", ce.Column, "type", ce.Type, "error", err)
	return ce
}
