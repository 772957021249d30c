// Package codec implements the per-field-type binary codecs shared by every
// table dialect: fixed-width ASCII representations for the classic types,
// little-endian binary layouts for the Visual FoxPro types, and the
// block-number encodings used by memo fields.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
)

// MemoStore is the block-store contract used by memo codecs. Block numbers
// are monotonically increasing per memo file; block 0 means "no memo".
type MemoStore interface {
	GetMemo(block int) ([]byte, error)
	PutMemo(data []byte) (int, error)
}

// PackFunc converts a value to exactly fd.Length on-disk bytes.
type PackFunc func(v Value, fd *FieldDescriptor, memo MemoStore, enc *encoding.Encoder) ([]byte, error)

// UnpackFunc converts fd.Length on-disk bytes back to a value.
type UnpackFunc func(data []byte, fd *FieldDescriptor, memo MemoStore, dec *encoding.Decoder) (Value, error)

// BlankFunc produces the type's default on-disk bit pattern.
type BlankFunc func(length int) []byte

// SpecFunc validates a field-creation format literal ("(30)", "(9,2)", "")
// plus any flag words, returning the field geometry.
type SpecFunc func(args string, flagWords, allowed []string) (length, decimals int, flags FieldFlag, err error)

// TypeDef is one entry of a dialect's codec table.
type TypeDef struct {
	Pack   PackFunc
	Unpack UnpackFunc
	Blank  BlankFunc
	Spec   SpecFunc

	// Memo marks types stored out of line in the memo file.
	Memo bool

	// NullWhenBlank is the dialect default for what a blank field decodes
	// to: the type's zero value (false) or Null (true). Callers may
	// override it per field via FieldDescriptor.EmptyAsNull.
	NullWhenBlank bool
}

// Registry maps a dialect's type tags to their codecs.
type Registry map[FieldType]TypeDef

func decodeText(dec *encoding.Decoder, data []byte) (string, error) {
	if dec == nil {
		return string(data), nil
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return string(out), nil
}

func encodeText(enc *encoding.Encoder, s string) ([]byte, error) {
	if enc == nil {
		return []byte(s), nil
	}
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding text: %w", err)
	}
	return out, nil
}

// padBlank right-pads data with spaces to the field length, or errors if the
// data is too long.
func padBlank(data []byte, fd *FieldDescriptor) ([]byte, error) {
	if len(data) > fd.Length {
		return nil, &OverflowError{
			Field:   fd.Name,
			Message: fmt.Sprintf("tried to store %d bytes in %d byte field", len(data), fd.Length),
		}
	}
	if len(data) == fd.Length {
		return data, nil
	}
	padded := bytes.Repeat([]byte{' '}, fd.Length)
	copy(padded, data)
	return padded, nil
}

func spaces(n int) []byte { return bytes.Repeat([]byte{' '}, n) }
func zeros(n int) []byte  { return make([]byte, n) }

func allBlank(data []byte) bool {
	for _, b := range data {
		if b != ' ' && b != 0 {
			return false
		}
	}
	return true
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Character

func unpackCharacter(data []byte, fd *FieldDescriptor, _ MemoStore, dec *encoding.Decoder) (Value, error) {
	if fd.Binary() {
		out := make([]byte, len(data))
		copy(out, data)
		return Bytes(out), nil
	}
	text, err := decodeText(dec, data)
	if err != nil {
		return Null, err
	}
	text = strings.TrimRight(text, " ")
	if text == "" {
		if fd.EmptyAsNull {
			return Null, nil
		}
		return Text(""), nil
	}
	return Text(text), nil
}

func packCharacter(v Value, fd *FieldDescriptor, _ MemoStore, enc *encoding.Encoder) ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return spaces(fd.Length), nil
	case KindBytes:
		if !fd.Binary() {
			return nil, fmt.Errorf("field %s: raw bytes only allowed in binary character fields", fd.Name)
		}
		return padBlank(v.Bytes(), fd)
	case KindText:
		if fd.Binary() {
			return padBlank([]byte(v.Text()), fd)
		}
		encoded, err := encodeText(enc, strings.TrimSpace(v.Text()))
		if err != nil {
			return nil, err
		}
		// trailing whitespace beyond the field width is dropped
		if len(encoded) > fd.Length && strings.TrimSpace(string(encoded[fd.Length:])) == "" {
			encoded = encoded[:fd.Length]
		}
		return padBlank(encoded, fd)
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Character", fd.Name, v.Kind())
	}
}

// Numeric / Float (fixed-width ASCII)

func unpackNumeric(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\x00", ""))
	if text == "" || text[0] == '*' { // '*' = value too big to store
		if fd.EmptyAsNull {
			return Null, nil
		}
		if fd.Decimals == 0 {
			return Int(0), nil
		}
		return Float(0), nil
	}
	if fd.Decimals == 0 && !strings.ContainsAny(text, ".eE") {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Null, fmt.Errorf("field %s: unreadable numeric %q: %w", fd.Name, text, err)
		}
		return Int(n), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Null, fmt.Errorf("field %s: unreadable numeric %q: %w", fd.Name, text, err)
	}
	return Float(f), nil
}

func packNumeric(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return spaces(fd.Length), nil
	case KindInt, KindFloat:
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Numeric", fd.Name, v.Kind())
	}
	value := v.Float()
	text := fmt.Sprintf("%*.*f", fd.Length, fd.Decimals, value)
	if len(text) > fd.Length {
		overflow := &OverflowError{
			Field:   fd.Name,
			Message: fmt.Sprintf("value %v representation too long for %d byte field", value, fd.Length),
		}
		// compaction only rescues single-integer-digit values whose decimal
		// expansion is too long; a multi-digit integer portion that does not
		// fit is lost data, not a formatting problem
		if integerDigits(value) > 1 {
			return nil, overflow
		}
		text = scientificNotation(value, fd.Length)
		if len(text) > fd.Length {
			return nil, overflow
		}
		return padNumeric(text, fd.Length), nil
	}
	return []byte(text), nil
}

// integerDigits counts the digits of the integer portion of value, sign
// excluded; values below 1 count as one digit ("0").
func integerDigits(value float64) int {
	return len(strconv.FormatFloat(math.Trunc(math.Abs(value)), 'f', 0, 64))
}

func padNumeric(text string, width int) []byte {
	return []byte(fmt.Sprintf("%*s", width, text))
}

// scientificNotation returns the shortest 'e' representation of value that
// fits in width characters, reducing mantissa precision as needed. Returns a
// too-long string when even zero mantissa digits do not fit.
func scientificNotation(value float64, width int) string {
	for prec := width; prec >= 0; prec-- {
		text := strconv.FormatFloat(value, 'e', prec, 64)
		if len(text) <= width {
			return text
		}
	}
	return strconv.FormatFloat(value, 'e', 0, 64)
}

// Date (ASCII yyyymmdd)

func unpackDate(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	text := string(data)
	if text == "        " || text == "00000000" || allBlank(data) {
		return Null, nil
	}
	year, err1 := strconv.Atoi(strings.TrimSpace(text[0:4]))
	month, err2 := strconv.Atoi(strings.TrimSpace(text[4:6]))
	day, err3 := strconv.Atoi(strings.TrimSpace(text[6:8]))
	if err1 != nil || err2 != nil || err3 != nil {
		return Null, fmt.Errorf("field %s: unreadable date %q", fd.Name, text)
	}
	return Date(timeDate(year, month, day)), nil
}

func packDate(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return spaces(8), nil
	case KindDate, KindDateTime:
		y, m, d := v.Time().Date()
		return []byte(fmt.Sprintf("%04d%02d%02d", y, int(m), d)), nil
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Date", fd.Name, v.Kind())
	}
}

// Logical

func unpackLogical(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	switch data[0] {
	case 't', 'T', 'y', 'Y':
		return Bool(true), nil
	case 'f', 'F', 'n', 'N':
		return Bool(false), nil
	case '?', ' ':
		if fd.EmptyAsNull {
			return Null, nil
		}
		return Bool(false), nil
	default:
		return Null, fmt.Errorf("field %s: logical field contained %q", fd.Name, data[0])
	}
}

func packLogical(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return []byte{'?'}, nil
	case KindBool:
		if v.Bool() {
			return []byte{'T'}, nil
		}
		return []byte{'F'}, nil
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Logical", fd.Name, v.Kind())
	}
}

// Memo, dBase style: the block number is stored as right-aligned ASCII.

func unpackMemo(data []byte, fd *FieldDescriptor, memo MemoStore, dec *encoding.Decoder) (Value, error) {
	text := strings.TrimSpace(string(data))
	if text == "" || memo == nil {
		return emptyMemoValue(fd), nil
	}
	block, err := strconv.Atoi(text)
	if err != nil {
		return Null, fmt.Errorf("field %s: unreadable memo block %q: %w", fd.Name, text, err)
	}
	return fetchMemo(block, fd, memo, dec)
}

func packMemo(v Value, fd *FieldDescriptor, memo MemoStore, enc *encoding.Encoder) ([]byte, error) {
	block, err := storeMemo(v, fd, memo, enc)
	if err != nil {
		return nil, err
	}
	if block == 0 {
		return spaces(fd.Length), nil
	}
	return []byte(fmt.Sprintf("%*d", fd.Length, block)), nil
}

// Memo, VFP style: the block number is a little-endian int32.

func unpackVfpMemo(data []byte, fd *FieldDescriptor, memo MemoStore, dec *encoding.Decoder) (Value, error) {
	if memo == nil {
		return emptyMemoValue(fd), nil
	}
	block := int(int32(binary.LittleEndian.Uint32(data)))
	if block == 0 {
		return emptyMemoValue(fd), nil
	}
	return fetchMemo(block, fd, memo, dec)
}

func packVfpMemo(v Value, fd *FieldDescriptor, memo MemoStore, enc *encoding.Encoder) ([]byte, error) {
	block, err := storeMemo(v, fd, memo, enc)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(int32(block)))
	return out, nil
}

func emptyMemoValue(fd *FieldDescriptor) Value {
	if fd.EmptyAsNull {
		return Null
	}
	if fd.Binary() {
		return Bytes(nil)
	}
	return Text("")
}

func fetchMemo(block int, fd *FieldDescriptor, memo MemoStore, dec *encoding.Decoder) (Value, error) {
	data, err := memo.GetMemo(block)
	if err != nil {
		return Null, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	if fd.Binary() {
		return Bytes(data), nil
	}
	text, err := decodeText(dec, data)
	if err != nil {
		return Null, err
	}
	return Text(text), nil
}

func storeMemo(v Value, fd *FieldDescriptor, memo MemoStore, enc *encoding.Encoder) (int, error) {
	if memo == nil {
		return 0, fmt.Errorf("field %s: no memo store attached, unable to update", fd.Name)
	}
	var payload []byte
	switch v.Kind() {
	case KindNull:
		payload = nil
	case KindBytes:
		if !fd.Binary() {
			return 0, fmt.Errorf("field %s: raw bytes only allowed in binary memo fields", fd.Name)
		}
		payload = v.Bytes()
	case KindText:
		if fd.Binary() {
			payload = []byte(v.Text())
			break
		}
		encoded, err := encodeText(enc, v.Text())
		if err != nil {
			return 0, err
		}
		payload = encoded
	default:
		return 0, fmt.Errorf("field %s: unable to coerce %s to Memo", fd.Name, v.Kind())
	}
	return memo.PutMemo(payload)
}

// Integer (little-endian int32)

func unpackInteger(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	return Int(int64(int32(binary.LittleEndian.Uint32(data)))), nil
}

func packInteger(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	var n int64
	switch v.Kind() {
	case KindNull:
		n = 0
	case KindInt, KindFloat:
		n = v.Int()
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Integer", fd.Name, v.Kind())
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, &OverflowError{
			Field:   fd.Name,
			Message: fmt.Sprintf("integer size exceeded: possible -2,147,483,648..+2,147,483,647, attempted %d", n),
		}
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(int32(n)))
	return out, nil
}

// Double (little-endian float64)

func unpackDouble(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	return Float(math.Float64frombits(binary.LittleEndian.Uint64(data))), nil
}

func packDouble(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	var f float64
	switch v.Kind() {
	case KindNull:
		f = 0
	case KindInt, KindFloat:
		f = v.Float()
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Double", fd.Name, v.Kind())
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, math.Float64bits(f))
	return out, nil
}

// Currency (little-endian int64, four implied decimal places)

func unpackCurrency(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	quanta := int64(binary.LittleEndian.Uint64(data))
	return Float(float64(quanta) / 10000), nil
}

func packCurrency(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	var f float64
	switch v.Kind() {
	case KindNull:
		f = 0
	case KindInt, KindFloat:
		f = v.Float()
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to Currency", fd.Name, v.Kind())
	}
	scaled := f * 10000
	if scaled >= math.MaxInt64 || scaled <= math.MinInt64 {
		return nil, &OverflowError{
			Field:   fd.Name,
			Message: fmt.Sprintf("currency value %v is out of bounds", f),
		}
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(int64(math.Round(scaled))))
	return out, nil
}

// DateTime (VFP): two little-endian int32s, Julian day + millisecond of day.

func unpackDateTime(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	if allZero(data) {
		return Null, nil
	}
	days := int(int32(binary.LittleEndian.Uint32(data[:4])))
	ms := int(int32(binary.LittleEndian.Uint32(data[4:])))
	ordinal := days - julianOffset
	if ordinal < 1 {
		return Null, nil
	}
	date := dateFromOrdinal(ordinal)
	hour, min, sec, nsec := clockFromMilliseconds(ms)
	y, m, d := date.Date()
	return DateTime(time.Date(y, m, d, hour, min, sec, nsec, time.UTC)), nil
}

func packDateTime(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	out := make([]byte, 8)
	switch v.Kind() {
	case KindNull:
		return out, nil
	case KindDate, KindDateTime:
	default:
		return nil, fmt.Errorf("field %s: unable to coerce %s to DateTime", fd.Name, v.Kind())
	}
	t := v.Time()
	binary.LittleEndian.PutUint32(out[:4], uint32(int32(ordinalOf(t)+julianOffset)))
	binary.LittleEndian.PutUint32(out[4:], uint32(int32(millisecondOfDay(t))))
	return out, nil
}

// Timestamp (Clipper): same layout as the VFP datetime.

func unpackTimestamp(data []byte, fd *FieldDescriptor, memo MemoStore, dec *encoding.Decoder) (Value, error) {
	return unpackDateTime(data, fd, memo, dec)
}

func packTimestamp(v Value, fd *FieldDescriptor, memo MemoStore, enc *encoding.Encoder) ([]byte, error) {
	return packDateTime(v, fd, memo, enc)
}

// Null bitmap pseudo-field: opaque to callers.

func unpackNullFlags(data []byte, fd *FieldDescriptor, _ MemoStore, _ *encoding.Decoder) (Value, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return Bytes(out), nil
}

func packNullFlags(v Value, fd *FieldDescriptor, _ MemoStore, _ *encoding.Encoder) ([]byte, error) {
	return nil, fmt.Errorf("field %s: the null bitmap cannot be assigned directly", fd.Name)
}

func timeDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
