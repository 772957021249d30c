package xbase

import (
	"encoding/binary"
	"time"
)

// headerSize is the fixed size of the table header, which is also the size
// of each field descriptor entry.
const headerSize = 32

// descriptorTerminator ends the field descriptor block.
const descriptorTerminator = 0x0D

// eofByte trails the last record in the legacy dialects.
const eofByte = 0x1A

const (
	activeFlag  = 0x20 // record delete flag: active
	deletedFlag = 0x2A // record delete flag: deleted
)

// header is the decoded 32-byte table header.
type header struct {
	version      byte
	updated      time.Time
	recordCount  int
	headerLength int
	recordLength int
	codePage     byte
}

// parseHeader decodes the fixed header. The packed date is interpreted
// against the dialect's epoch (1900 for dBase III and Clipper, 2000 for the
// FoxPro family).
func parseHeader(b []byte, epoch int) header {
	return header{
		version:      b[0],
		updated:      time.Date(epoch+int(b[1]), time.Month(b[2]), int(b[3]), 0, 0, 0, 0, time.UTC),
		recordCount:  int(binary.LittleEndian.Uint32(b[4:8])),
		headerLength: int(binary.LittleEndian.Uint16(b[8:10])),
		recordLength: int(binary.LittleEndian.Uint16(b[10:12])),
		codePage:     b[29],
	}
}

// encode serializes the header, stamping the last-update date with now.
func (h *header) encode(epoch int, now time.Time) []byte {
	out := make([]byte, headerSize)
	out[0] = h.version
	year := now.Year() - epoch
	if year < 0 {
		year = 0
	}
	out[1] = byte(year)
	out[2] = byte(now.Month())
	out[3] = byte(now.Day())
	binary.LittleEndian.PutUint32(out[4:8], uint32(h.recordCount))
	binary.LittleEndian.PutUint16(out[8:10], uint16(h.headerLength))
	binary.LittleEndian.PutUint16(out[10:12], uint16(h.recordLength))
	out[29] = h.codePage
	return out
}
