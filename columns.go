package main

import (
	"errors"
	"strings"
)

// columnSelector picks and renders the per-column template of a set.
type columnSelector struct {
	set          *TemplateSet
	prefix       string
	numberSpec   string
	numberAsText bool
}

func newColumnSelector(set *TemplateSet, prefix, numberPrecision string, numberAsText bool) *columnSelector {
	spec := numberPrecision
	if spec == "" {
		spec = set.DefaultNumberPrecision
	}
	if spec != "" {
		spec = "(" + spec + ")"
	}
	return &columnSelector{
		set:          set,
		prefix:       prefix,
		numberSpec:   spec,
		numberAsText: numberAsText,
	}
}

// template returns the template text for a column on the given path.
func (s *columnSelector) template(col Column, fallback bool) (string, error) {
	ct, ok := s.set.Columns[col.Category]
	if !ok {
		return "", &TemplateError{Dialect: s.set.Dialect, Key: "column/" + col.Category.String(), Reason: "missing column template"}
	}
	if fallback && ct.Fallback != "" {
		return ct.Fallback, nil
	}
	return ct.Primary, nil
}

// expression renders one column. toLob is the large-object prefix of the
// path being rendered.
func (s *columnSelector) expression(col Column, alias, toLob string, fallback bool) (string, error) {
	text, err := s.template(col, fallback)
	if err != nil {
		return "", err
	}
	ctx := map[string]string{
		"tableAlias":          alias,
		"columnName":          col.Name,
		"prefixName":          s.prefix,
		"toLob":               toLob,
		"numberPrecisionSpec": s.numberSpec,
	}
	number := s.set.NumberConversion
	if s.numberAsText {
		number = s.set.NumberText
	}
	conv, err := render(number, ctx)
	if err != nil {
		return "", s.annotate(err, col)
	}
	ctx["numberConversion"] = conv

	out, err := render(text, ctx)
	if err != nil {
		return "", s.annotate(err, col)
	}
	return out, nil
}

// expressions renders cols and joins them with the dialect's separator.
func (s *columnSelector) expressions(cols []Column, alias, toLob string, fallback bool) (string, error) {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		e, err := s.expression(c, alias, toLob, fallback)
		if err != nil {
			return "", err
		}
		parts = append(parts, e)
	}
	return strings.Join(parts, s.set.ColumnJoin), nil
}

func (s *columnSelector) annotate(err error, col Column) error {
	var te *TemplateError
	if errors.As(err, &te) {
		return &TemplateError{
			Dialect: s.set.Dialect,
			Key:     "column/" + col.Category.String() + "/" + te.Key,
			Reason:  te.Reason + " (column " + col.Name + ")",
		}
	}
	return err
}
