// Package memo implements the sidecar block files that hold variable-length
// field data: the fixed-block .dbt format used by dBase III and Clipper, and
// the variable-block .fpt format used by FoxPro and Visual FoxPro.
package memo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// DbtBlockSize is the only block size legacy .dbt files use.
	DbtBlockSize = 512

	// DefaultFptBlockSize is the block size written into new .fpt files.
	DefaultFptBlockSize = 64

	headerSize = 512

	fptSubHeaderSize = 8
)

var (
	// ErrVerify reports that a re-read of freshly written memo data did not
	// match what was written.
	ErrVerify = errors.New("memo write verification failed")

	// ErrCorrupt reports a structurally invalid memo file.
	ErrCorrupt = errors.New("memo file corrupt")
)

// dbtSentinel terminates the payload of every .dbt memo entry.
var dbtSentinel = []byte{0x1A, 0x1A}

// File is the backing-file contract a store needs. *os.File satisfies it;
// wrappers may interpose on reads and writes.
type File interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
	Close() error
}

func openFile(path string, create, readOnly bool) (*os.File, error) {
	if readOnly {
		return os.OpenFile(path, os.O_RDONLY, 0)
	}
	flag := os.O_RDWR
	if create {
		flag |= os.O_CREATE
	}
	return os.OpenFile(path, flag, 0o644)
}

// Store reads and writes memo payloads addressed by block number. Block 0 is
// never a valid payload address; both formats reserve it for the header.
type Store interface {
	GetMemo(block int) ([]byte, error)
	PutMemo(data []byte) (int, error)
	Zap() error
	Close() error
}

// DbtStore is a dBase III / Clipper memo file. Blocks are a fixed 512 bytes,
// the header holds the next free block as a little-endian uint32, and each
// payload is terminated by the two-byte 0x1A 0x1A sentinel.
type DbtStore struct {
	file     File
	nextFree uint32
}

// OpenDbt opens an existing .dbt file, creating a fresh one when create is
// set and the file does not exist or is empty. readOnly opens without write
// access and never creates.
func OpenDbt(path string, create, readOnly bool) (*DbtStore, error) {
	f, err := openFile(path, create, readOnly)
	if err != nil {
		return nil, err
	}
	s, err := NewDbt(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// NewDbt builds a store over an already opened file, initializing the header
// when the file is empty.
func NewDbt(f File) (*DbtStore, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	s := &DbtStore{file: f}
	if st.Size() == 0 {
		if err := s.reset(); err != nil {
			return nil, err
		}
		return s, nil
	}
	var hdr [4]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	s.nextFree = binary.LittleEndian.Uint32(hdr[:])
	if s.nextFree == 0 {
		s.nextFree = 1
	}
	return s, nil
}

func (s *DbtStore) reset() error {
	if err := s.file.Truncate(0); err != nil {
		return err
	}
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr, 1)
	if _, err := s.file.WriteAt(hdr, 0); err != nil {
		return err
	}
	s.nextFree = 1
	return nil
}

// GetMemo returns the payload starting at block, scanning forward for the
// 0x1A 0x1A sentinel.
func (s *DbtStore) GetMemo(block int) ([]byte, error) {
	if block < 1 {
		return nil, fmt.Errorf("%w: memo block %d out of range", ErrCorrupt, block)
	}
	var payload []byte
	buf := make([]byte, DbtBlockSize)
	offset := int64(block) * DbtBlockSize
	for {
		n, err := s.file.ReadAt(buf, offset)
		if n == 0 {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: memo block %d missing sentinel", ErrCorrupt, block)
			}
			return nil, err
		}
		chunk := buf[:n]
		// The sentinel may straddle a block boundary, so check the byte
		// carried over from the previous chunk as well.
		if len(payload) > 0 && payload[len(payload)-1] == 0x1A && chunk[0] == 0x1A {
			return payload[:len(payload)-1], nil
		}
		if i := bytes.Index(chunk, dbtSentinel); i >= 0 {
			return append(payload, chunk[:i]...), nil
		}
		payload = append(payload, chunk...)
		if err == io.EOF {
			return nil, fmt.Errorf("%w: memo block %d missing sentinel", ErrCorrupt, block)
		}
		offset += int64(n)
	}
}

// PutMemo appends data as a new memo entry and returns its block number. The
// written bytes are re-read and compared before the header is updated.
func (s *DbtStore) PutMemo(data []byte) (int, error) {
	block := int(s.nextFree)
	total := len(data) + len(dbtSentinel)
	blocks := (total + DbtBlockSize - 1) / DbtBlockSize
	out := make([]byte, blocks*DbtBlockSize)
	copy(out, data)
	copy(out[len(data):], dbtSentinel)
	offset := int64(block) * DbtBlockSize
	if _, err := s.file.WriteAt(out, offset); err != nil {
		return 0, err
	}
	check := make([]byte, len(out))
	if _, err := s.file.ReadAt(check, offset); err != nil {
		return 0, err
	}
	if !bytes.Equal(check, out) {
		return 0, ErrVerify
	}
	s.nextFree = uint32(block + blocks)
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], s.nextFree)
	if _, err := s.file.WriteAt(hdr[:], 0); err != nil {
		return 0, err
	}
	return block, nil
}

// Zap discards every memo entry, leaving an empty file.
func (s *DbtStore) Zap() error { return s.reset() }

func (s *DbtStore) Close() error { return s.file.Close() }

// FptStore is a FoxPro / Visual FoxPro memo file. The header holds the next
// free block (big-endian uint32 at offset 0) and the block size (big-endian
// uint16 at offset 6). Each entry starts with an eight-byte sub-header: a
// big-endian uint32 record type (1 for memo data) followed by a big-endian
// uint32 payload length.
type FptStore struct {
	file      File
	nextFree  uint32
	blockSize int
}

// OpenFpt opens an existing .fpt file, creating a fresh one with the given
// block size when create is set and the file does not exist or is empty.
// readOnly opens without write access and never creates.
func OpenFpt(path string, create, readOnly bool, blockSize int) (*FptStore, error) {
	f, err := openFile(path, create, readOnly)
	if err != nil {
		return nil, err
	}
	s, err := NewFpt(f, blockSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// NewFpt builds a store over an already opened file, initializing the header
// with the given block size when the file is empty. An existing header's
// block size wins over the argument.
func NewFpt(f File, blockSize int) (*FptStore, error) {
	if blockSize <= 0 {
		blockSize = DefaultFptBlockSize
	}
	blockSize = normalizeBlockSize(blockSize)
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	s := &FptStore{file: f, blockSize: blockSize}
	if st.Size() == 0 {
		if err := s.reset(); err != nil {
			return nil, err
		}
		return s, nil
	}
	var hdr [8]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	s.nextFree = binary.BigEndian.Uint32(hdr[0:4])
	stored := int(binary.BigEndian.Uint16(hdr[6:8]))
	if stored == 0 {
		return nil, fmt.Errorf("%w: zero block size", ErrCorrupt)
	}
	s.blockSize = normalizeBlockSize(stored)
	return s, nil
}

// normalizeBlockSize maps the small block sizes some writers store as counts
// of 512-byte units to byte sizes.
func normalizeBlockSize(n int) int {
	if n > 1 && n < 33 {
		return n * 512
	}
	return n
}

func (s *FptStore) reset() error {
	if err := s.file.Truncate(0); err != nil {
		return err
	}
	hdr := make([]byte, headerSize)
	// The header occupies whole blocks; payload numbering starts after it.
	first := (headerSize + s.blockSize - 1) / s.blockSize
	binary.BigEndian.PutUint32(hdr[0:4], uint32(first))
	binary.BigEndian.PutUint16(hdr[6:8], uint16(s.blockSize))
	if _, err := s.file.WriteAt(hdr, 0); err != nil {
		return err
	}
	s.nextFree = uint32(first)
	return nil
}

// BlockSize returns the block size read from, or written to, the header.
func (s *FptStore) BlockSize() int { return s.blockSize }

// GetMemo returns the payload stored at block.
func (s *FptStore) GetMemo(block int) ([]byte, error) {
	if block < 1 {
		return nil, fmt.Errorf("%w: memo block %d out of range", ErrCorrupt, block)
	}
	offset := int64(block) * int64(s.blockSize)
	var sub [fptSubHeaderSize]byte
	if _, err := s.file.ReadAt(sub[:], offset); err != nil {
		return nil, fmt.Errorf("%w: memo block %d: %v", ErrCorrupt, block, err)
	}
	length := binary.BigEndian.Uint32(sub[4:8])
	payload := make([]byte, length)
	if _, err := s.file.ReadAt(payload, offset+fptSubHeaderSize); err != nil {
		return nil, fmt.Errorf("%w: memo block %d truncated", ErrCorrupt, block)
	}
	return payload, nil
}

// PutMemo appends data as a new memo entry and returns its block number. The
// written bytes are re-read and compared before the header is updated.
func (s *FptStore) PutMemo(data []byte) (int, error) {
	block := int(s.nextFree)
	total := fptSubHeaderSize + len(data)
	blocks := (total + s.blockSize - 1) / s.blockSize
	out := make([]byte, blocks*s.blockSize)
	binary.BigEndian.PutUint32(out[0:4], 1)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(data)))
	copy(out[fptSubHeaderSize:], data)
	offset := int64(block) * int64(s.blockSize)
	if _, err := s.file.WriteAt(out, offset); err != nil {
		return 0, err
	}
	check := make([]byte, len(out))
	if _, err := s.file.ReadAt(check, offset); err != nil {
		return 0, err
	}
	if !bytes.Equal(check, out) {
		return 0, ErrVerify
	}
	s.nextFree = uint32(block + blocks)
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], s.nextFree)
	if _, err := s.file.WriteAt(hdr[:], 0); err != nil {
		return 0, err
	}
	return block, nil
}

// Zap discards every memo entry, leaving an empty file.
func (s *FptStore) Zap() error { return s.reset() }

func (s *FptStore) Close() error { return s.file.Close() }

// Discard is a Store for tables opened with memo access disabled: reads
// yield empty payloads and writes go nowhere.
type Discard struct{}

func (Discard) GetMemo(int) ([]byte, error) { return nil, nil }
func (Discard) PutMemo([]byte) (int, error) { return 0, nil }
func (Discard) Zap() error                  { return nil }
func (Discard) Close() error                { return nil }
