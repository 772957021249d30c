package xbase

import "github.com/xbasekit/xbase/internal/codec"

// Dialect is one on-disk table format variant. A dialect is a plain data
// value: the header constants plus the codec table are the whole difference
// between formats, so the engine never branches on a dialect's identity.
type Dialect struct {
	// Name is the human-readable dialect name.
	Name string

	// Version is the base version byte written to header byte 0.
	Version byte

	// MemoVersion is the version byte written when the table carries memo
	// fields. Visual FoxPro does not flag memo presence in the version.
	MemoVersion byte

	// Supported lists every version byte this dialect can open.
	Supported []byte

	// MemoExt is the memo sidecar extension (".dbt" or ".fpt").
	MemoExt string

	// VariableMemo selects the variable-block memo store over the
	// fixed 512-byte-block store.
	VariableMemo bool

	// HeaderExtra is the number of reserved bytes between the field
	// descriptor terminator and the first record (the FoxPro backlink area).
	HeaderExtra int

	// Epoch is the base year of the packed last-update date.
	Epoch int

	// EOFByte marks dialects whose files end with a trailing 0x1A.
	EOFByte bool

	// LongChar marks the Clipper extension where a character field's
	// decimals byte is repurposed as a high-order length byte.
	LongChar bool

	// MaxFields is the most fields a table may declare.
	MaxFields int

	// CodePage is the code page id written into newly created tables.
	CodePage byte

	family string
	types  codec.Registry
}

// Types returns the dialect's codec table.
func (d *Dialect) Types() codec.Registry { return d.types }

// versionFor returns the header version byte for a table with or without
// memo fields.
func (d *Dialect) versionFor(hasMemo bool) byte {
	if hasMemo {
		return d.MemoVersion
	}
	return d.Version
}

func (d *Dialect) supports(version byte) bool {
	for _, v := range d.Supported {
		if v == version {
			return true
		}
	}
	return false
}

// hasMemoVersion reports whether a version byte flags memo presence under
// this dialect.
func (d *Dialect) hasMemoVersion(version byte) bool {
	return d.MemoVersion != d.Version && version == d.MemoVersion
}

var (
	// DBase3 is the dBase III table format: ASCII codecs, .dbt memo files
	// with fixed 512-byte blocks, 1900-based header dates.
	DBase3 = &Dialect{
		Name:        "dBase III Plus",
		Version:     0x03,
		MemoVersion: 0x83,
		Supported:   []byte{0x03, 0x83},
		MemoExt:     ".dbt",
		Epoch:       1900,
		EOFByte:     true,
		MaxFields:   255,
		CodePage:    0x03,
		family:      "db3",
		types:       codec.DBase3Types(),
	}

	// Clipper is dBase III plus the Clipper long-character extension, where
	// character fields may reach 65,519 bytes by repurposing the decimals
	// byte as a high-order length byte.
	Clipper = &Dialect{
		Name:        "Clipper 5",
		Version:     0x03,
		MemoVersion: 0x83,
		Supported:   []byte{0x03, 0x83},
		MemoExt:     ".dbt",
		Epoch:       1900,
		EOFByte:     true,
		LongChar:    true,
		MaxFields:   255,
		CodePage:    0x03,
		family:      "clp",
		types:       codec.ClipperTypes(),
	}

	// FoxPro is the FoxPro 2 table format: adds General and Picture memo
	// types and the .fpt variable-block memo file.
	FoxPro = &Dialect{
		Name:         "FoxPro 2",
		Version:      0x02,
		MemoVersion:  0xF5,
		Supported:    []byte{0x02, 0x03, 0xF5},
		MemoExt:      ".fpt",
		VariableMemo: true,
		HeaderExtra:  263,
		Epoch:        2000,
		EOFByte:      true,
		MaxFields:    255,
		CodePage:     0x03,
		family:       "fp",
		types:        codec.FoxProTypes(),
	}

	// VisualFoxPro adds the binary field types (Integer, Double, Currency,
	// DateTime) and nullable fields backed by a hidden null bitmap.
	VisualFoxPro = &Dialect{
		Name:         "Visual FoxPro",
		Version:      0x30,
		MemoVersion:  0x30,
		Supported:    []byte{0x30},
		MemoExt:      ".fpt",
		VariableMemo: true,
		HeaderExtra:  263,
		Epoch:        2000,
		MaxFields:    255,
		CodePage:     0x03,
		family:       "vfp",
		types:        codec.VisualFoxProTypes(),
	}
)

// dialects is the closed set the opener dispatches over, most specific first.
var dialects = []*Dialect{VisualFoxPro, FoxPro, DBase3, Clipper}

// candidatesFor returns every dialect that can open the given version byte.
func candidatesFor(version byte) []*Dialect {
	var out []*Dialect
	for _, d := range dialects {
		if d.supports(version) {
			out = append(out, d)
		}
	}
	return out
}
