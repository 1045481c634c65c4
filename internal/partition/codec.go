package partition

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/go-sif/sifplan"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.Config{
	UseNumber:              true,
	EscapeHTML:             false,
	SortMapKeys:            false,
	ValidateJsonRawMessage: false,
}.Froze()

type wirePartition struct {
	ID   string          `json:"id"`
	Rows [][]interface{} `json:"rows"`
}

// encodeValue converts a canonical value into something which survives a JSON round trip
func encodeValue(colType sifplan.ColumnType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch tv := v.(type) {
	case float32:
		if math.IsNaN(float64(tv)) || math.IsInf(float64(tv), 0) {
			return colType.ToString(tv), nil
		}
	case float64:
		if math.IsNaN(tv) || math.IsInf(tv, 0) {
			return colType.ToString(tv), nil
		}
	case time.Time:
		return tv.Format(time.RFC3339Nano), nil
	case sifplan.Accumulator:
		return tv.ToBytes()
	}
	return v, nil
}

func decodeValue(colType sifplan.ColumnType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch ct := colType.(type) {
	case *sifplan.TimeColumnType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected encoded time, got %#v", v)
		}
		return time.Parse(time.RFC3339Nano, s)
	case *sifplan.VarBytesColumnType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected encoded bytes, got %#v", v)
		}
		return base64.StdEncoding.DecodeString(s)
	case *sifplan.AccumulatorColumnType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected encoded accumulator, got %#v", v)
		}
		buf, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		if ct.Factory == nil {
			return nil, fmt.Errorf("column type %s has no accumulator factory", ct)
		}
		return ct.Factory().FromBytes(buf)
	}
	return colType.Coerce(v)
}

// ToBytes serializes a Partition
func ToBytes(part sifplan.Partition) ([]byte, error) {
	types := part.Schema().ColumnTypes()
	wire := wirePartition{ID: part.ID(), Rows: make([][]interface{}, part.GetNumRows())}
	for i := 0; i < part.GetNumRows(); i++ {
		values := part.GetRow(i).Values()
		for j, v := range values {
			ev, err := encodeValue(types[j], v)
			if err != nil {
				return nil, err
			}
			values[j] = ev
		}
		wire.Rows[i] = values
	}
	return json.Marshal(&wire)
}

// FromBytes deserializes a Partition produced by ToBytes
func FromBytes(buf []byte, schema sifplan.Schema) (sifplan.OperablePartition, error) {
	var wire wirePartition
	if err := json.Unmarshal(buf, &wire); err != nil {
		return nil, fmt.Errorf("unable to decode partition: %w", err)
	}
	types := schema.ColumnTypes()
	part := createPartitionImpl(len(wire.Rows), schema)
	if len(wire.ID) > 0 {
		part.id = wire.ID
	}
	for i, values := range wire.Rows {
		if len(values) != len(types) {
			return nil, fmt.Errorf("row %d has %d values, schema has %d columns", i, len(values), len(types))
		}
		for j, v := range values {
			dv, err := decodeValue(types[j], v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			values[j] = dv
		}
		part.rows = append(part.rows, values)
	}
	return part, nil
}
