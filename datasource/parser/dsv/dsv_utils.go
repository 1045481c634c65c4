package dsv

import (
	"fmt"

	"github.com/go-sif/sifplan"
)

// Parses a slice of strings into row values, according to a schema
func scanRow(conf *ParserConf, names []string, colTypes []sifplan.ColumnType, rowStrings []string, values []interface{}) error {
	for i := 0; i < len(rowStrings); i++ {
		colVal := rowStrings[i]
		// check for a nil value
		if len(colVal) == 0 || colVal == conf.NilValue {
			values[i] = nil
			continue
		}
		// otherwise, parse type
		v, err := colTypes[i].Parse(colVal)
		if err != nil {
			return fmt.Errorf("column %s could not be parsed as %s. Was: %#v", names[i], colTypes[i], colVal)
		}
		values[i] = v
	}
	return nil
}
