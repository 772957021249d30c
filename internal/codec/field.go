package codec

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldType is the single-byte type tag stored in a field descriptor.
type FieldType byte

const (
	CharField      FieldType = 'C'
	CurrencyField  FieldType = 'Y'
	DateField      FieldType = 'D'
	DateTimeField  FieldType = 'T'
	DoubleField    FieldType = 'B'
	FloatField     FieldType = 'F'
	GeneralField   FieldType = 'G'
	IntegerField   FieldType = 'I'
	LogicalField   FieldType = 'L'
	MemoField      FieldType = 'M'
	NumericField   FieldType = 'N'
	PictureField   FieldType = 'P'
	TimestampField FieldType = '@'

	// NullFlagField is the hidden pseudo-field holding the null bitmap.
	NullFlagField FieldType = '0'
)

func (ft FieldType) String() string {
	switch ft {
	case CharField:
		return "Character"
	case CurrencyField:
		return "Currency"
	case DateField:
		return "Date"
	case DateTimeField:
		return "DateTime"
	case DoubleField:
		return "Double"
	case FloatField:
		return "Float"
	case GeneralField:
		return "General"
	case IntegerField:
		return "Integer"
	case LogicalField:
		return "Logical"
	case MemoField:
		return "Memo"
	case NumericField:
		return "Numeric"
	case PictureField:
		return "Picture"
	case TimestampField:
		return "TimeStamp"
	case NullFlagField:
		return "_NullFlags"
	}
	return fmt.Sprintf("Unknown(%#x)", byte(ft))
}

// FieldFlag holds the descriptor flag bits at byte 18.
type FieldFlag byte

const (
	SystemFlag   FieldFlag = 0x01
	NullableFlag FieldFlag = 0x02
	BinaryFlag   FieldFlag = 0x04
	// NoCPTransFlag shares the BINARY bit; for character data it means
	// "do not translate through the code page".
	NoCPTransFlag FieldFlag = 0x04
)

// FlagWord converts a textual flag from a field spec to its bit.
func FlagWord(word string) (FieldFlag, bool) {
	switch strings.ToUpper(word) {
	case "BINARY":
		return BinaryFlag, true
	case "NOCPTRANS":
		return NoCPTransFlag, true
	case "NULL":
		return NullableFlag, true
	case "SYSTEM":
		return SystemFlag, true
	}
	return 0, false
}

// FieldDescriptor describes one field of a table layout. Start/End are byte
// offsets into the record buffer (offset 0 is the delete flag, so the first
// field starts at 1).
type FieldDescriptor struct {
	Name     string
	Type     FieldType
	Start    int
	Length   int
	Decimals int
	Flags    FieldFlag

	// EmptyAsNull makes a blank field decode to Null instead of the
	// type's zero value. Integer, double and currency fields have no
	// distinct blank pattern; their zero bytes always decode to zero.
	EmptyAsNull bool

	// NullSlot is the bit index of this field in the null bitmap, or -1.
	NullSlot int
}

func (fd *FieldDescriptor) End() int { return fd.Start + fd.Length }

func (fd *FieldDescriptor) Binary() bool   { return fd.Flags&BinaryFlag != 0 }
func (fd *FieldDescriptor) Nullable() bool { return fd.Flags&NullableFlag != 0 }
func (fd *FieldDescriptor) System() bool   { return fd.Flags&SystemFlag != 0 }

// MaxFieldNameLength is the descriptor limit (11 bytes on disk, null padded).
const MaxFieldNameLength = 10

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidFieldName reports whether name is legal for a user field: at most ten
// characters, starting with a letter, containing only letters, digits and
// underscores.
func ValidFieldName(name string) bool {
	return len(name) <= MaxFieldNameLength && fieldNamePattern.MatchString(name)
}
