package codec

// Dialect codec tables. A dialect is a data value, not a subtype: these
// registries plus the header constants in the engine package are the whole
// difference between table formats.

var (
	noFlags      = []string{}
	nullOnly     = []string{"NULL"}
	charFlags    = []string{"BINARY", "NOCPTRANS", "NULL"}
	binNullFlags = []string{"NULL", "BINARY"}
)

func blankSpaces(n int) []byte { return spaces(n) }
func blankZeros(n int) []byte  { return zeros(n) }
func blankLogical(int) []byte  { return []byte{'?'} }

// DBase3Types is the codec table for dBase III tables.
func DBase3Types() Registry {
	return Registry{
		CharField: {
			Pack: packCharacter, Unpack: unpackCharacter, Blank: blankSpaces,
			Spec: specCharacter(256),
		},
		DateField: {
			Pack: packDate, Unpack: unpackDate, Blank: blankSpaces,
			Spec: specFixed("D", 8, 0), NullWhenBlank: true,
		},
		NumericField: {
			Pack: packNumeric, Unpack: unpackNumeric, Blank: blankSpaces,
			Spec: specNumeric(), NullWhenBlank: true,
		},
		FloatField: {
			Pack: packNumeric, Unpack: unpackNumeric, Blank: blankSpaces,
			Spec: specNumeric(), NullWhenBlank: true,
		},
		LogicalField: {
			Pack: packLogical, Unpack: unpackLogical, Blank: blankLogical,
			Spec: specFixed("L", 1, 0), NullWhenBlank: true,
		},
		MemoField: {
			Pack: packMemo, Unpack: unpackMemo, Blank: blankSpaces,
			Spec: specFixed("M", 10, 0), Memo: true,
		},
		TimestampField: {
			Pack: packTimestamp, Unpack: unpackTimestamp, Blank: blankZeros,
			Spec: specFixed("@", 8, 0), NullWhenBlank: true,
		},
	}
}

// ClipperTypes is DBase3Types with the Clipper long-character ceiling.
func ClipperTypes() Registry {
	reg := DBase3Types()
	char := reg[CharField]
	char.Spec = specCharacter(65519)
	reg[CharField] = char
	return reg
}

// FoxProTypes is the codec table for FoxPro 2 tables.
func FoxProTypes() Registry {
	return Registry{
		CharField: {
			Pack: packCharacter, Unpack: unpackCharacter, Blank: blankSpaces,
			Spec: specCharacter(255),
		},
		DateField: {
			Pack: packDate, Unpack: unpackDate, Blank: blankSpaces,
			Spec: specFixed("D", 8, 0), NullWhenBlank: true,
		},
		NumericField: {
			Pack: packNumeric, Unpack: unpackNumeric, Blank: blankSpaces,
			Spec: specNumeric(), NullWhenBlank: true,
		},
		FloatField: {
			Pack: packNumeric, Unpack: unpackNumeric, Blank: blankSpaces,
			Spec: specNumeric(), NullWhenBlank: true,
		},
		LogicalField: {
			Pack: packLogical, Unpack: unpackLogical, Blank: blankLogical,
			Spec: specFixed("L", 1, 0), NullWhenBlank: true,
		},
		MemoField: {
			Pack: packMemo, Unpack: unpackMemo, Blank: blankSpaces,
			Spec: specFixed("M", 10, 0), Memo: true,
		},
		GeneralField: {
			Pack: packMemo, Unpack: unpackMemo, Blank: blankSpaces,
			Spec: specFixed("G", 10, BinaryFlag), Memo: true,
		},
		PictureField: {
			Pack: packMemo, Unpack: unpackMemo, Blank: blankSpaces,
			Spec: specFixed("P", 10, BinaryFlag), Memo: true,
		},
		NullFlagField: {
			Pack: packNullFlags, Unpack: unpackNullFlags, Blank: blankZeros,
		},
	}
}

// VisualFoxProTypes is the codec table for Visual FoxPro tables, which add
// the binary field types and store memo block numbers as int32.
func VisualFoxProTypes() Registry {
	return Registry{
		CharField: {
			Pack: packCharacter, Unpack: unpackCharacter, Blank: blankSpaces,
			Spec: specCharacter(255),
		},
		CurrencyField: {
			Pack: packCurrency, Unpack: unpackCurrency, Blank: blankZeros,
			Spec: specFixed("Y", 8, 0), NullWhenBlank: true,
		},
		DoubleField: {
			Pack: packDouble, Unpack: unpackDouble, Blank: blankZeros,
			Spec: specFixed("B", 8, 0), NullWhenBlank: true,
		},
		FloatField: {
			Pack: packNumeric, Unpack: unpackNumeric, Blank: blankSpaces,
			Spec: specNumeric(), NullWhenBlank: true,
		},
		NumericField: {
			Pack: packNumeric, Unpack: unpackNumeric, Blank: blankSpaces,
			Spec: specNumeric(), NullWhenBlank: true,
		},
		IntegerField: {
			Pack: packInteger, Unpack: unpackInteger, Blank: blankZeros,
			Spec: specFixed("I", 4, 0), NullWhenBlank: true,
		},
		LogicalField: {
			Pack: packLogical, Unpack: unpackLogical, Blank: blankLogical,
			Spec: specFixed("L", 1, 0), NullWhenBlank: true,
		},
		DateField: {
			Pack: packDate, Unpack: unpackDate, Blank: blankSpaces,
			Spec: specFixed("D", 8, 0), NullWhenBlank: true,
		},
		DateTimeField: {
			Pack: packDateTime, Unpack: unpackDateTime, Blank: blankZeros,
			Spec: specFixed("T", 8, 0), NullWhenBlank: true,
		},
		MemoField: {
			Pack: packVfpMemo, Unpack: unpackVfpMemo, Blank: blankZeros,
			Spec: specFixed("M", 4, 0), Memo: true,
		},
		GeneralField: {
			Pack: packVfpMemo, Unpack: unpackVfpMemo, Blank: blankZeros,
			Spec: specFixed("G", 4, BinaryFlag), Memo: true,
		},
		PictureField: {
			Pack: packVfpMemo, Unpack: unpackVfpMemo, Blank: blankZeros,
			Spec: specFixed("P", 4, BinaryFlag), Memo: true,
		},
		NullFlagField: {
			Pack: packNullFlags, Unpack: unpackNullFlags, Blank: blankZeros,
		},
	}
}

// AllowedFlags returns the flag words accepted for a type in the given
// dialect family. Classic dBase/Clipper fields accept none; FoxPro fields
// accept NULL, and binary-capable fields also BINARY/NOCPTRANS.
func AllowedFlags(family string, ft FieldType) []string {
	switch family {
	case "db3", "clp":
		return noFlags
	}
	switch ft {
	case CharField, MemoField:
		return charFlags
	case CurrencyField, DoubleField, IntegerField, GeneralField, PictureField:
		return binNullFlags
	default:
		return nullOnly
	}
}
