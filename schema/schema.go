// Package schema derives the Parquet JSON schema string the data file
// writer needs from a table's column layout, adapted from the teacher's
// parquet_accumulator package. It additionally assigns a stable field id
// per column (ordinal position in the catalog's column_names), a detail
// the distilled design drops but the original writer relies on so that
// UPDATE's delete+insert lowering can match columns by id rather than by
// name across files written at different times.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnKind is the handful of Parquet leaf types the engine needs; richer
// type systems are out of scope.
type ColumnKind string

const (
	KindUTF8   ColumnKind = "BYTE_ARRAY"
	KindDouble ColumnKind = "DOUBLE"
	KindInt64  ColumnKind = "INT64"
	KindBool   ColumnKind = "BOOLEAN"
)

// Column is one field in a table's layout.
type Column struct {
	Name    string
	Kind    ColumnKind
	FieldID int
}

// ParseKind maps a catalog-stored type name onto a ColumnKind, rejecting
// names outside the leaf types the writer supports.
func ParseKind(s string) (ColumnKind, error) {
	switch k := ColumnKind(s); k {
	case KindUTF8, KindDouble, KindInt64, KindBool:
		return k, nil
	}
	return "", fmt.Errorf("unknown column kind %q", s)
}

// FieldIDs builds the name -> field id mapping for columnNames, assigning
// ids by ordinal position the way the original writer does at construction
// time.
func FieldIDs(columnNames []string) map[string]int {
	ids := make(map[string]int, len(columnNames))
	for i, name := range columnNames {
		ids[name] = i
	}
	return ids
}

type jsonTag struct {
	Tag    string     `json:",omitempty"`
	Fields []*jsonTag `json:",omitempty"`
}

func convertedType(kind ColumnKind) string {
	if kind == KindUTF8 {
		return "UTF8"
	}
	return ""
}

// JSONSchema renders the parquet-go JSON schema string for columns, with a
// fieldid tag so the writer's footer carries the same ids FieldIDs assigns.
func JSONSchema(columns []Column) (string, error) {
	fields := make([]*jsonTag, 0, len(columns))
	for _, c := range columns {
		var tagParts []string
		tagParts = append(tagParts, "type="+string(c.Kind))
		if ct := convertedType(c.Kind); ct != "" {
			tagParts = append(tagParts, "convertedtype="+ct)
		}
		tagParts = append(tagParts, "name="+c.Name)
		tagParts = append(tagParts, "repetitiontype=OPTIONAL")
		tagParts = append(tagParts, fmt.Sprintf("fieldid=%d", c.FieldID))
		fields = append(fields, &jsonTag{Tag: strings.Join(tagParts, ", ")})
	}

	root := jsonTag{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}

	b, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// FileRowNumberColumn names the file_row_number virtual column (spec
// §4.5.B). scan.Reader does not inject it: it takes each row's
// file_row_number from the row's position in the file.
const FileRowNumberColumn = "file_row_number"
