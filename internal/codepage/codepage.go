// Package codepage resolves the code-page id stored at header byte 29 to a
// character encoding used for character and memo field translation.
package codepage

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Default is the code page written into newly created tables
// (0x03, Windows ANSI).
const Default byte = 0x03

var byID = map[byte]*charmap.Charmap{
	0x01: charmap.CodePage437,  // U.S. MS-DOS
	0x02: charmap.CodePage850,  // International MS-DOS
	0x03: charmap.Windows1252,  // Windows ANSI
	0x04: charmap.Macintosh,    // Standard Macintosh
	0x08: charmap.CodePage865,  // Danish OEM
	0x09: charmap.CodePage437,  // Dutch OEM
	0x0A: charmap.CodePage850,  // Dutch OEM (secondary)
	0x0B: charmap.CodePage437,  // Finnish OEM
	0x0D: charmap.CodePage437,  // French OEM
	0x0E: charmap.CodePage850,  // French OEM (secondary)
	0x0F: charmap.CodePage437,  // German OEM
	0x10: charmap.CodePage850,  // German OEM (secondary)
	0x11: charmap.CodePage437,  // Italian OEM
	0x12: charmap.CodePage850,  // Italian OEM (secondary)
	0x15: charmap.CodePage437,  // Swedish OEM
	0x16: charmap.CodePage850,  // Swedish OEM (secondary)
	0x17: charmap.CodePage865,  // Norwegian OEM
	0x18: charmap.CodePage437,  // Spanish OEM
	0x19: charmap.CodePage437,  // English OEM (Britain)
	0x1A: charmap.CodePage850,  // English OEM (Britain) (secondary)
	0x1B: charmap.CodePage437,  // English OEM (U.S.)
	0x1C: charmap.CodePage863,  // French OEM (Canada)
	0x1D: charmap.CodePage850,  // French OEM (secondary)
	0x1F: charmap.CodePage852,  // Czech OEM
	0x22: charmap.CodePage852,  // Hungarian OEM
	0x23: charmap.CodePage852,  // Polish OEM
	0x24: charmap.CodePage860,  // Portuguese OEM
	0x25: charmap.CodePage850,  // Portuguese OEM (secondary)
	0x26: charmap.CodePage866,  // Russian OEM
	0x37: charmap.CodePage850,  // English OEM (U.S.) (secondary)
	0x40: charmap.CodePage852,  // Romanian OEM
	0x64: charmap.CodePage852,  // Eastern European Windows
	0x65: charmap.CodePage866,  // Russian Windows
	0x66: charmap.CodePage865,  // Nordic Windows
	0xC8: charmap.Windows1250,  // Central European Windows
	0xC9: charmap.Windows1251,  // Cyrillic Windows
	0xCA: charmap.Windows1254,  // Turkish Windows
	0xCB: charmap.Windows1253,  // Greek Windows
}

// Lookup returns the decoder/encoder pair for a code-page id. Id 0x00 is
// plain ASCII and returns nil translators (pass-through). Unknown ids are an
// error so that callers surface them instead of silently mangling text.
func Lookup(id byte) (*encoding.Decoder, *encoding.Encoder, error) {
	if id == 0x00 {
		return nil, nil, nil
	}
	cm, ok := byID[id]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported code page id %#x", id)
	}
	return cm.NewDecoder(), cm.NewEncoder(), nil
}

// Name returns a human-readable name for a code-page id.
func Name(id byte) string {
	if id == 0x00 {
		return "ascii"
	}
	if cm, ok := byID[id]; ok {
		return cm.String()
	}
	return fmt.Sprintf("unknown(%#x)", id)
}
