package main

import (
	"fmt"
)

// maxValuePreview bounds how much of an offending value a ConversionError carries.
const maxValuePreview = 1000

// TemplateError reports a template set that cannot render: a missing entry
// for a dialect, a malformed token, or a token absent from the render context.
type TemplateError struct {
	Dialect string
	Key     string
	Reason  string
}

func (e *TemplateError) Error() string {
	if e.Dialect == "" {
		return fmt.Sprintf("template %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("template %s/%s: %s", e.Dialect, e.Key, e.Reason)
}

// MetadataError wraps a failure of the backing schema read for one table.
type MetadataError struct {
	Table string
	Err   error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("read metadata for %s: %v", e.Table, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// ConversionError reports a value that could not be converted for a column.
// The whole row conversion is aborted when one is returned.
type ConversionError struct {
	Column  string
	Type    string
	Preview string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert value %q for column %s of type %s: %v", e.Preview, e.Column, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// CaptureError reports a change log row that breaks the log table contract.
type CaptureError struct {
	Table  string
	Reason string
}

func (e *CaptureError) Error() string {
	if e.Table == "" {
		return "captured row: " + e.Reason
	}
	return fmt.Sprintf("captured row for %s: %s", e.Table, e.Reason)
}

// previewValue truncates long values to maxValuePreview characters and notes
// the original byte length.
func previewValue(value string) string {
	runes := []rune(value)
	if len(runes) <= maxValuePreview {
		return value
	}
	return fmt.Sprintf("%s ... (%d bytes)", string(runes[:maxValuePreview]), len(value))
}
