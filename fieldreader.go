package goresource

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm/schema"
)

// fieldReader is the narrow "named-field reader" capability the paginator
// and the resource layer depend on: read the value of a named column from a
// row, whatever the row's concrete shape is.
type fieldReader interface {
	ReadField(row any, column string) (any, bool)
}

// mapFieldReader reads columns from dict-like rows (map[string]any), e.g.
// rows produced by raw queries.
type mapFieldReader struct{}

func (mapFieldReader) ReadField(row any, column string) (any, bool) {
	m, ok := row.(map[string]any)
	if !ok {
		return nil, false
	}

	value, ok := m[column]

	return value, ok
}

// schemaFieldReader reads columns from model structs through their parsed
// GORM schema. Columns are matched by database name or by struct field name.
type schemaFieldReader struct {
	schema *schema.Schema
}

func (r schemaFieldReader) ReadField(row any, column string) (any, bool) {
	field := r.schema.LookUpField(column)
	if field == nil {
		return nil, false
	}

	rv := reflect.Indirect(reflect.ValueOf(row))
	if !rv.IsValid() {
		return nil, false
	}

	value, _ := field.ValueOf(context.Background(), rv)

	return value, true
}

// readerFor selects the field reader for a row by runtime type inspection.
// Dict-like rows take precedence over the schema reader.
func readerFor(row any, s *schema.Schema) fieldReader {
	if _, ok := row.(map[string]any); ok {
		return mapFieldReader{}
	}

	return schemaFieldReader{schema: s}
}

// formatPosition stringifies a column value into its position form, the
// resumable marker carried inside cursors. Time values get a fixed textual
// form so that parsePositionValue can restore them.
func formatPosition(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// parsePositionValue restores a position string into the value bound to the
// positional filter. Strings that parse as time.Time are bound as time.Time
// so that datetime columns compare correctly across dialects; everything
// else is bound as the raw string.
func parsePositionValue(position string) any {
	var t time.Time
	if err := t.UnmarshalText([]byte(position)); err == nil {
		return t
	}

	return position
}
