package sifplan

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the interface which all column types must implement. Values
// held in Rows are always in the canonical Go representation of their
// ColumnType (bool, int32, int64, float32, float64, string, []byte,
// time.Time or Accumulator), or nil when null.
type ColumnType interface {
	String() string                             // String returns the name of this ColumnType
	ToString(v interface{}) string              // ToString produces a string representation of a (non-nil) value of this ColumnType
	Coerce(v interface{}) (interface{}, error)  // Coerce converts a decoded value into the canonical representation of this ColumnType
	Parse(s string) (interface{}, error)        // Parse converts a textual value into the canonical representation of this ColumnType
	Compare(a interface{}, b interface{}) int   // Compare orders two non-nil canonical values, returning -1, 0 or 1
	AppendKey(buf []byte, v interface{}) []byte // AppendKey appends deterministic key bytes for a non-nil canonical value
}

// BoolColumnType is a column type which stores a boolean value
type BoolColumnType struct{}

func (b *BoolColumnType) String() string { return "bool" }

// ToString produces a string representation of a value of a BoolColumnType value
func (b *BoolColumnType) ToString(v interface{}) string {
	return strconv.FormatBool(v.(bool))
}

// Coerce converts a decoded value into a bool
func (b *BoolColumnType) Coerce(v interface{}) (interface{}, error) {
	switch bv := v.(type) {
	case bool:
		return bv, nil
	case string:
		return b.Parse(bv)
	}
	return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
}

// Parse parses a bool
func (b *BoolColumnType) Parse(s string) (interface{}, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}

// Compare orders false before true
func (b *BoolColumnType) Compare(x interface{}, y interface{}) int {
	bx, by := x.(bool), y.(bool)
	if bx == by {
		return 0
	} else if !bx {
		return -1
	}
	return 1
}

// AppendKey appends a single byte
func (b *BoolColumnType) AppendKey(buf []byte, v interface{}) []byte {
	if v.(bool) {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// Int32ColumnType is a column type which stores an int32 value
type Int32ColumnType struct{}

func (b *Int32ColumnType) String() string { return "int32" }

// ToString produces a string representation of a value of a Int32ColumnType value
func (b *Int32ColumnType) ToString(v interface{}) string {
	return strconv.FormatInt(int64(v.(int32)), 10)
}

// Coerce converts a decoded value into an int32
func (b *Int32ColumnType) Coerce(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		return b.Parse(s)
	}
	iv, ok := toInt64(v)
	if !ok || iv < math.MinInt32 || iv > math.MaxInt32 {
		return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
	}
	return int32(iv), nil
}

// Parse parses an int32
func (b *Int32ColumnType) Parse(s string) (interface{}, error) {
	iv, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return nil, err
	}
	return int32(iv), nil
}

// Compare orders int32 values
func (b *Int32ColumnType) Compare(x interface{}, y interface{}) int {
	return compareInt64(int64(x.(int32)), int64(y.(int32)))
}

// AppendKey appends big-endian bytes
func (b *Int32ColumnType) AppendKey(buf []byte, v interface{}) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(v.(int32)))
}

// Int64ColumnType is a column type which stores an int64 value
type Int64ColumnType struct{}

func (b *Int64ColumnType) String() string { return "int64" }

// ToString produces a string representation of a value of a Int64ColumnType value
func (b *Int64ColumnType) ToString(v interface{}) string {
	return strconv.FormatInt(v.(int64), 10)
}

// Coerce converts a decoded value into an int64
func (b *Int64ColumnType) Coerce(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		return b.Parse(s)
	}
	iv, ok := toInt64(v)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
	}
	return iv, nil
}

// Parse parses an int64
func (b *Int64ColumnType) Parse(s string) (interface{}, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// Compare orders int64 values
func (b *Int64ColumnType) Compare(x interface{}, y interface{}) int {
	return compareInt64(x.(int64), y.(int64))
}

// AppendKey appends big-endian bytes
func (b *Int64ColumnType) AppendKey(buf []byte, v interface{}) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v.(int64)))
}

// Float32ColumnType is a column type which stores a float32 value
type Float32ColumnType struct{}

func (b *Float32ColumnType) String() string { return "float32" }

// ToString produces a string representation of a value of a Float32ColumnType value
func (b *Float32ColumnType) ToString(v interface{}) string {
	return strconv.FormatFloat(float64(v.(float32)), 'g', -1, 32)
}

// Coerce converts a decoded value into a float32
func (b *Float32ColumnType) Coerce(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		return b.Parse(s)
	}
	fv, ok := toFloat64(v)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
	}
	return float32(fv), nil
}

// Parse parses a float32
func (b *Float32ColumnType) Parse(s string) (interface{}, error) {
	fv, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return nil, err
	}
	return float32(fv), nil
}

// Compare orders float32 values. NaN sorts after every other value.
func (b *Float32ColumnType) Compare(x interface{}, y interface{}) int {
	return compareFloat64(float64(x.(float32)), float64(y.(float32)))
}

// AppendKey appends the IEEE 754 bits of the value
func (b *Float32ColumnType) AppendKey(buf []byte, v interface{}) []byte {
	return binary.BigEndian.AppendUint32(buf, math.Float32bits(v.(float32)))
}

// Float64ColumnType is a column type which stores a float64 value
type Float64ColumnType struct{}

func (b *Float64ColumnType) String() string { return "float64" }

// ToString produces a string representation of a value of a Float64ColumnType value
func (b *Float64ColumnType) ToString(v interface{}) string {
	return strconv.FormatFloat(v.(float64), 'g', -1, 64)
}

// Coerce converts a decoded value into a float64
func (b *Float64ColumnType) Coerce(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		return b.Parse(s)
	}
	fv, ok := toFloat64(v)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
	}
	return fv, nil
}

// Parse parses a float64
func (b *Float64ColumnType) Parse(s string) (interface{}, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Compare orders float64 values. NaN sorts after every other value.
func (b *Float64ColumnType) Compare(x interface{}, y interface{}) int {
	return compareFloat64(x.(float64), y.(float64))
}

// AppendKey appends the IEEE 754 bits of the value
func (b *Float64ColumnType) AppendKey(buf []byte, v interface{}) []byte {
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(v.(float64)))
}

// VarStringColumnType is a column type which stores a variable-length string value
type VarStringColumnType struct{}

func (b *VarStringColumnType) String() string { return "varstring" }

// ToString produces a string representation of a value of a VarStringColumnType value
func (b *VarStringColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("\"%s\"", v.(string))
}

// Coerce converts a decoded value into a string
func (b *VarStringColumnType) Coerce(v interface{}) (interface{}, error) {
	switch sv := v.(type) {
	case string:
		return sv, nil
	case []byte:
		return string(sv), nil
	case json.Number:
		return sv.String(), nil
	}
	return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
}

// Parse returns s unmodified
func (b *VarStringColumnType) Parse(s string) (interface{}, error) {
	return s, nil
}

// Compare orders strings lexicographically by byte
func (b *VarStringColumnType) Compare(x interface{}, y interface{}) int {
	return strings.Compare(x.(string), y.(string))
}

// AppendKey appends a length-prefixed copy of the string
func (b *VarStringColumnType) AppendKey(buf []byte, v interface{}) []byte {
	s := v.(string)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// VarBytesColumnType is a column type which stores variable-length byte arrays
type VarBytesColumnType struct{}

func (b *VarBytesColumnType) String() string { return "varbytes" }

// ToString produces a string representation of a value of a VarBytesColumnType value
func (b *VarBytesColumnType) ToString(v interface{}) string {
	bytes := v.([]byte)
	var res strings.Builder
	res.WriteString("[")
	for i, b := range bytes {
		if i > 0 {
			res.WriteString(" ")
		}
		res.WriteString(strconv.Itoa(int(b)))
	}
	res.WriteString("]")
	return res.String()
}

// Coerce converts a decoded value into a []byte
func (b *VarBytesColumnType) Coerce(v interface{}) (interface{}, error) {
	switch bv := v.(type) {
	case []byte:
		return bv, nil
	case string:
		return []byte(bv), nil
	}
	return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
}

// Parse returns the raw bytes of s
func (b *VarBytesColumnType) Parse(s string) (interface{}, error) {
	return []byte(s), nil
}

// Compare orders byte arrays lexicographically
func (b *VarBytesColumnType) Compare(x interface{}, y interface{}) int {
	return bytes.Compare(x.([]byte), y.([]byte))
}

// AppendKey appends a length-prefixed copy of the bytes
func (b *VarBytesColumnType) AppendKey(buf []byte, v interface{}) []byte {
	bv := v.([]byte)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(bv)))
	return append(buf, bv...)
}

// TimeColumnType is a column type which stores a time.Time value. Format is
// the layout used to Parse textual values, and defaults to time.RFC3339.
type TimeColumnType struct {
	Format string
}

func (b *TimeColumnType) String() string { return "time" }

func (b *TimeColumnType) format() string {
	if len(b.Format) == 0 {
		return time.RFC3339
	}
	return b.Format
}

// ToString produces a string representation of a value of a TimeColumnType value
func (b *TimeColumnType) ToString(v interface{}) string {
	return v.(time.Time).Format(b.format())
}

// Coerce converts a decoded value into a time.Time
func (b *TimeColumnType) Coerce(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case time.Time:
		return tv, nil
	case string:
		return b.Parse(tv)
	}
	if iv, ok := toInt64(v); ok {
		return time.Unix(0, iv).UTC(), nil
	}
	return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
}

// Parse parses a time according to Format
func (b *TimeColumnType) Parse(s string) (interface{}, error) {
	t, err := time.Parse(b.format(), s)
	if err != nil {
		return nil, fmt.Errorf("value could not be parsed as datetime with format %s. Was: %#v", b.format(), s)
	}
	return t, nil
}

// Compare orders times chronologically
func (b *TimeColumnType) Compare(x interface{}, y interface{}) int {
	return x.(time.Time).Compare(y.(time.Time))
}

// AppendKey appends the big-endian nanosecond timestamp
func (b *TimeColumnType) AppendKey(buf []byte, v interface{}) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v.(time.Time).UnixNano()))
}

// AccumulatorColumnType is a column type which stores the intermediate state of an
// aggregate function, as produced by partial aggregation. Factory produces empty
// Accumulators, and is used when deserializing values. Result is the ColumnType of
// the finalized value.
type AccumulatorColumnType struct {
	Name    string
	Factory AccumulatorFactory
	Result  ColumnType
}

func (b *AccumulatorColumnType) String() string { return "accumulator(" + b.Name + ")" }

// ToString produces a string representation of the finalized value of an Accumulator
func (b *AccumulatorColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("<%v>", v.(Accumulator).Result())
}

// Coerce accepts only Accumulators
func (b *AccumulatorColumnType) Coerce(v interface{}) (interface{}, error) {
	if a, ok := v.(Accumulator); ok {
		return a, nil
	}
	return nil, fmt.Errorf("cannot coerce %#v to %s", v, b)
}

// Parse is not supported for Accumulators
func (b *AccumulatorColumnType) Parse(s string) (interface{}, error) {
	return nil, fmt.Errorf("%s values cannot be parsed from text", b)
}

// Compare considers all Accumulators equal
func (b *AccumulatorColumnType) Compare(x interface{}, y interface{}) int {
	return 0
}

// AppendKey appends the serialized Accumulator
func (b *AccumulatorColumnType) AppendKey(buf []byte, v interface{}) []byte {
	data, err := v.(Accumulator).ToBytes()
	if err != nil {
		return buf
	}
	return append(buf, data...)
}

// SameColumnType returns true iff two ColumnTypes describe the same kind of value
func SameColumnType(a ColumnType, b ColumnType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// IsNumeric returns true iff the ColumnType stores integers or floats
func IsNumeric(ct ColumnType) bool {
	switch ct.(type) {
	case *Int32ColumnType, *Int64ColumnType, *Float32ColumnType, *Float64ColumnType:
		return true
	}
	return false
}

// IsInteger returns true iff the ColumnType stores integers
func IsInteger(ct ColumnType) bool {
	switch ct.(type) {
	case *Int32ColumnType, *Int64ColumnType:
		return true
	}
	return false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float32(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	case float64:
		if float64(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		iv, err := n.Int64()
		return iv, err == nil
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		fv, err := n.Float64()
		return fv, err == nil
	}
	if iv, ok := toInt64(v); ok {
		return float64(iv), true
	}
	return 0, false
}

func compareInt64(x int64, y int64) int {
	if x < y {
		return -1
	} else if x > y {
		return 1
	}
	return 0
}

func compareFloat64(x float64, y float64) int {
	xnan, ynan := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xnan && ynan:
		return 0
	case xnan:
		return 1
	case ynan:
		return -1
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
