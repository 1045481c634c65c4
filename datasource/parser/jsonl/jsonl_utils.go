package jsonl

import (
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/tidwall/gjson"
)

// ParseJSONRow parses the columns of a single JSON document into row values, according to a schema
func ParseJSONRow(colNames []string, colTypes []sifplan.ColumnType, doc gjson.Result, values []interface{}) error {
	for i, name := range colNames {
		v, err := parseValue(doc.Get(name), colTypes[i])
		if err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		values[i] = v
	}
	return nil
}

func parseValue(val gjson.Result, colType sifplan.ColumnType) (interface{}, error) {
	if !val.Exists() {
		return nil, nil
	}
	switch val.Type {
	case gjson.Null:
		return nil, nil
	case gjson.True, gjson.False:
		return colType.Coerce(val.Bool())
	case gjson.String:
		return colType.Parse(val.Str)
	default:
		// numbers, objects and arrays are handed over in their raw form
		return colType.Parse(val.Raw)
	}
}
