package xbase

import "github.com/xbasekit/xbase/internal/codec"

// Value is the tagged union every field decodes to and every field write
// accepts: text, integer, float, bool, date, datetime, bytes, or null.
type Value = codec.Value

// Kind identifies which variant a Value holds.
type Kind = codec.Kind

const (
	KindNull     = codec.KindNull
	KindText     = codec.KindText
	KindInt      = codec.KindInt
	KindFloat    = codec.KindFloat
	KindBool     = codec.KindBool
	KindDate     = codec.KindDate
	KindDateTime = codec.KindDateTime
	KindBytes    = codec.KindBytes
)

// Null is the single null value.
var Null = codec.Null

// Value constructors.
var (
	Text     = codec.Text
	Int      = codec.Int
	Float    = codec.Float
	Bool     = codec.Bool
	Bytes    = codec.Bytes
	Date     = codec.Date
	DateTime = codec.DateTime
)

// FieldType is the single-byte type tag stored in a field descriptor.
type FieldType = codec.FieldType

const (
	CharField      = codec.CharField
	CurrencyField  = codec.CurrencyField
	DateField      = codec.DateField
	DateTimeField  = codec.DateTimeField
	DoubleField    = codec.DoubleField
	FloatField     = codec.FloatField
	GeneralField   = codec.GeneralField
	IntegerField   = codec.IntegerField
	LogicalField   = codec.LogicalField
	MemoField      = codec.MemoField
	NumericField   = codec.NumericField
	PictureField   = codec.PictureField
	TimestampField = codec.TimestampField
)
