package codec

import (
	"fmt"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindDate
	KindDateTime
	KindBytes
)

func (k Kind) String() string {
	return [...]string{
		"Null",
		"Text",
		"Int",
		"Float",
		"Bool",
		"Date",
		"DateTime",
		"Bytes",
	}[k]
}

// Value is the tagged union carried between field codecs and callers. A field
// always decodes to one of the eight kinds; blank fields decode either to the
// type's zero value or to Null, depending on the field's EmptyAsNull setting.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	yes  bool
	when time.Time
	raw  []byte
}

// Null is the single null value.
var Null = Value{kind: KindNull}

func Text(s string) Value   { return Value{kind: KindText, str: s} }
func Int(i int64) Value     { return Value{kind: KindInt, num: i} }
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }
func Bool(b bool) Value     { return Value{kind: KindBool, yes: b} }
func Bytes(b []byte) Value  { return Value{kind: KindBytes, raw: b} }
func Date(t time.Time) Value { return Value{kind: KindDate, when: dateOnly(t)} }
func DateTime(t time.Time) Value {
	return Value{kind: KindDateTime, when: t.Truncate(time.Millisecond)}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string variant; zero value for other kinds.
func (v Value) Text() string { return v.str }

// Int returns the integer variant, converting from Float if necessary.
func (v Value) Int() int64 {
	if v.kind == KindFloat {
		return int64(v.flt)
	}
	return v.num
}

// Float returns the float variant, converting from Int if necessary.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.num)
	}
	return v.flt
}

func (v Value) Bool() bool      { return v.yes }
func (v Value) Time() time.Time { return v.when }
func (v Value) Bytes() []byte   { return v.raw }

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBool:
		return v.yes == o.yes
	case KindDate, KindDateTime:
		return v.when.Equal(o.when)
	case KindBytes:
		return string(v.raw) == string(o.raw)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindText:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindFloat:
		return fmt.Sprintf("%g", v.flt)
	case KindBool:
		return fmt.Sprintf("%t", v.yes)
	case KindDate:
		return v.when.Format("2006-01-02")
	case KindDateTime:
		return v.when.Format("2006-01-02 15:04:05")
	case KindBytes:
		return fmt.Sprintf("%q", v.raw)
	}
	return "<invalid>"
}
