package xbase

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/text/encoding"

	"github.com/xbasekit/xbase/internal/codec"
	"github.com/xbasekit/xbase/internal/memo"
	"github.com/xbasekit/xbase/internal/utils"
)

// cacheSweepInterval is how many record loads pass between sweeps of the
// record cache's untouched slots.
const cacheSweepInterval = 256

// Table owns one table file, its optional memo sidecar, and the in-memory
// structures over them: the decoded layout, a record cache, and any number
// of registered indexes. All mutating operations require the table to be
// open read-write.
type Table struct {
	path    string
	dialect *Dialect
	file    *os.File
	memo    memo.Store

	hdr    header
	layout *layout

	dec *encoding.Decoder
	enc *encoding.Encoder

	readOnly    bool
	closed      bool
	ignoreMemos bool

	// packGen increments on every pack or zap; collections snapshot it to
	// detect stale record numbers.
	packGen int

	indexes []*Index

	cache map[int]*cacheSlot
	loads int
}

// cacheSlot weakly holds a record: untouched slots are dropped on the next
// sweep unless a flux session pins them.
type cacheSlot struct {
	rec     *Record
	touched bool
}

// Path returns the table file path.
func (t *Table) Path() string { return t.path }

// Dialect returns the table's format dialect.
func (t *Table) Dialect() *Dialect { return t.dialect }

// Len returns the number of records, deleted ones included.
func (t *Table) Len() int { return t.hdr.recordCount }

// ReadOnly reports whether mutating operations are rejected.
func (t *Table) ReadOnly() bool { return t.readOnly }

// CodePage returns the code page id from header byte 29.
func (t *Table) CodePage() byte { return t.hdr.codePage }

// LastUpdate returns the header's packed last-update date.
func (t *Table) LastUpdate() time.Time { return t.hdr.updated }

// FieldNames returns the user field names in descriptor order.
func (t *Table) FieldNames() []string { return t.layout.names() }

// FieldInfo describes one field of the table structure.
type FieldInfo struct {
	Name     string
	Type     FieldType
	Length   int
	Decimals int
	Nullable bool
	Binary   bool
}

func (fi FieldInfo) String() string {
	out := fmt.Sprintf("%s %c", fi.Name, byte(fi.Type))
	switch fi.Type {
	case CharField:
		out += fmt.Sprintf("(%d)", fi.Length)
	case NumericField, FloatField:
		out += fmt.Sprintf("(%d,%d)", fi.Length, fi.Decimals)
	}
	if fi.Binary {
		out += " BINARY"
	}
	if fi.Nullable {
		out += " NULL"
	}
	return out
}

// Structure returns the field layout in descriptor order.
func (t *Table) Structure() []FieldInfo {
	out := make([]FieldInfo, len(t.layout.fields))
	for i, fd := range t.layout.fields {
		out[i] = FieldInfo{
			Name:     fd.Name,
			Type:     fd.Type,
			Length:   fd.Length,
			Decimals: fd.Decimals,
			Nullable: fd.Nullable(),
			Binary:   fd.Binary(),
		}
	}
	return out
}

// BlankAsNull makes blank values of the named field decode to Null,
// overriding the dialect default for its type.
func (t *Table) BlankAsNull(name string) error {
	fd, err := t.layout.field(name)
	if err != nil {
		return err
	}
	fd.EmptyAsNull = true
	return nil
}

// BlankAsZero makes blank values of the named field decode to the type's
// zero value, overriding the dialect default.
func (t *Table) BlankAsZero(name string) error {
	fd, err := t.layout.field(name)
	if err != nil {
		return err
	}
	fd.EmptyAsNull = false
	return nil
}

// Close closes the table and memo files. Records and indexes referencing
// the table fail with ErrClosed afterwards.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.cache = nil
	var err error
	if t.memo != nil {
		err = t.memo.Close()
	}
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (t *Table) writable() error {
	if t.closed {
		return ErrClosed
	}
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *Table) memoStore() codec.MemoStore {
	if t.memo == nil {
		return nil
	}
	return t.memo
}

func (t *Table) recordOffset(recno int) int64 {
	return int64(t.hdr.headerLength) + int64(recno)*int64(t.hdr.recordLength)
}

func (t *Table) writeRecord(recno int, data []byte) error {
	if _, err := t.file.WriteAt(data, t.recordOffset(recno)); err != nil {
		return err
	}
	return t.file.Sync()
}

func (t *Table) readRecordBytes(recno int) ([]byte, error) {
	data := make([]byte, t.hdr.recordLength)
	if _, err := t.file.ReadAt(data, t.recordOffset(recno)); err != nil {
		return nil, structuref(t.path, "record %d unreadable: %v", recno, err)
	}
	return data, nil
}

// writeHeader re-stamps and persists the 32-byte header.
func (t *Table) writeHeader() error {
	t.hdr.version = t.dialect.versionFor(t.layout.hasMemoFields())
	if _, err := t.file.WriteAt(t.hdr.encode(t.dialect.Epoch, time.Now()), 0); err != nil {
		return err
	}
	return t.file.Sync()
}

// At returns the record at recno, re-materializing it from disk on a cache
// miss. Repeated calls return the same live record while it stays cached.
func (t *Table) At(recno int) (*Record, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if recno < 0 || recno >= t.hdr.recordCount {
		return nil, fmt.Errorf("record %d out of range 0..%d: %w", recno, t.hdr.recordCount-1, ErrNotFound)
	}
	if slot, ok := t.cache[recno]; ok {
		slot.touched = true
		return slot.rec, nil
	}
	data, err := t.readRecordBytes(recno)
	if err != nil {
		return nil, err
	}
	rec := &Record{table: t, recno: recno, data: data}
	t.cache[recno] = &cacheSlot{rec: rec, touched: true}
	t.loads++
	if t.loads >= cacheSweepInterval {
		t.sweepCache()
	}
	return rec, nil
}

// sweepCache drops every slot that has not been touched since the previous
// sweep. Records with an open flux session are pinned.
func (t *Table) sweepCache() {
	t.loads = 0
	for recno, slot := range t.cache {
		if !slot.touched && slot.rec.snapshot == nil {
			delete(t.cache, recno)
			continue
		}
		slot.touched = false
	}
}

// Append adds one record initialized from values (blank where absent).
// Population is all-or-nothing: on any field failure the table is unchanged.
func (t *Table) Append(values map[string]Value) (*Record, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	recno := t.hdr.recordCount
	rec := &Record{
		table: t,
		recno: recno,
		data:  append([]byte(nil), t.layout.blank...),
	}
	if len(values) > 0 {
		rec.snapshot = append([]byte(nil), rec.data...)
		rec.staged = make(map[string]Value)
		f := &Flux{rec: rec}
		for name, v := range values {
			if err := f.Set(name, v); err != nil {
				return nil, err
			}
		}
		if err := rec.flushStaged(); err != nil {
			return nil, err
		}
		rec.snapshot, rec.staged = nil, nil
	}
	if err := t.writeAppended(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AppendRow adds one record with positional values matching field order.
func (t *Table) AppendRow(values ...Value) (*Record, error) {
	if len(values) > len(t.layout.fields) {
		return nil, specErr("%d values for %d fields", len(values), len(t.layout.fields))
	}
	named := make(map[string]Value, len(values))
	for i, v := range values {
		named[t.layout.fields[i].Name] = v
	}
	return t.Append(named)
}

func (t *Table) writeAppended(rec *Record) error {
	out := rec.data
	if t.dialect.EOFByte {
		out = append(append([]byte(nil), rec.data...), eofByte)
	}
	if _, err := t.file.WriteAt(out, t.recordOffset(rec.recno)); err != nil {
		t.truncateTo(t.hdr.recordCount)
		return err
	}
	t.hdr.recordCount++
	if err := t.writeHeader(); err != nil {
		t.hdr.recordCount--
		t.truncateTo(t.hdr.recordCount)
		return err
	}
	t.cache[rec.recno] = &cacheSlot{rec: rec, touched: true}
	for _, idx := range t.indexes {
		idx.insertRecord(rec)
	}
	return nil
}

// truncateTo cuts the file after the given record count, restoring the
// trailing EOF byte where the dialect carries one.
func (t *Table) truncateTo(records int) {
	end := t.recordOffset(records)
	if t.dialect.EOFByte {
		t.file.WriteAt([]byte{eofByte}, end)
		end++
	}
	if err := utils.TruncateAt(t.file, end); err != nil {
		logger.Errorw("truncating table file", "path", t.path, "error", err)
	}
}

// flushStaged packs every staged memo value into the record buffer,
// assigning real block numbers.
func (r *Record) flushStaged() error {
	t := r.table
	for _, fd := range t.layout.fields {
		v, ok := r.staged[fd.Name]
		if !ok {
			continue
		}
		td := t.dialect.types[fd.Type]
		var out []byte
		var err error
		if v.IsNull() {
			out = td.Blank(fd.Length)
		} else {
			out, err = td.Pack(v, fd, t.memoStore(), t.enc)
		}
		if err != nil {
			return err
		}
		copy(r.data[fd.Start:fd.End()], out)
	}
	return nil
}

// ErrStopScan stops a Scan early without reporting an error.
var ErrStopScan = errors.New("stop scan")

// Scan calls fn for every live (not deleted) record in record order.
// Returning ErrStopScan stops the scan cleanly; any other error aborts it.
func (t *Table) Scan(fn func(*Record) error) error {
	if t.closed {
		return ErrClosed
	}
	for recno := 0; recno < t.hdr.recordCount; recno++ {
		rec, err := t.At(recno)
		if err != nil {
			return err
		}
		if rec.IsDeleted() {
			continue
		}
		if err := fn(rec); err != nil {
			if err == ErrStopScan {
				return nil
			}
			return err
		}
	}
	return nil
}

// Search returns every live record matching the predicate.
func (t *Table) Search(pred func(*Record) bool) ([]*Record, error) {
	var out []*Record
	err := t.Scan(func(r *Record) error {
		if pred(r) {
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// reindexRecord asks every registered index to re-evaluate one record.
func (t *Table) reindexRecord(r *Record) {
	for _, idx := range t.indexes {
		idx.reindexRecord(r)
	}
}

// Pack physically removes deleted records, renumbering survivors
// contiguously from zero. Outstanding lists over this table become stale;
// registered indexes are rebuilt.
func (t *Table) Pack() error {
	if err := t.writable(); err != nil {
		return err
	}
	var kept [][]byte
	renumber := make(map[int]int, t.hdr.recordCount)
	for recno := 0; recno < t.hdr.recordCount; recno++ {
		data, err := t.readRecordBytes(recno)
		if err != nil {
			return err
		}
		if data[0] == deletedFlag {
			renumber[recno] = -1
			continue
		}
		renumber[recno] = len(kept)
		kept = append(kept, data)
	}
	for i, data := range kept {
		if _, err := t.file.WriteAt(data, t.recordOffset(i)); err != nil {
			return err
		}
	}
	t.truncateTo(len(kept))
	t.hdr.recordCount = len(kept)
	if err := t.writeHeader(); err != nil {
		return err
	}
	t.packGen++
	rewired := make(map[int]*cacheSlot, len(t.cache))
	for recno, slot := range t.cache {
		slot.rec.recno = renumber[recno]
		if slot.rec.recno >= 0 {
			rewired[slot.rec.recno] = slot
		}
	}
	t.cache = rewired
	for _, idx := range t.indexes {
		if err := idx.Reindex(); err != nil {
			return err
		}
	}
	logger.Infow("packed table", "path", t.path, "records", len(kept))
	return nil
}

// Zap removes every record, leaving the structure intact. The memo file is
// reset to its empty-header state.
func (t *Table) Zap() error {
	if err := t.writable(); err != nil {
		return err
	}
	t.hdr.recordCount = 0
	t.truncateTo(0)
	if err := t.writeHeader(); err != nil {
		return err
	}
	if t.memo != nil {
		if err := t.memo.Zap(); err != nil {
			return err
		}
	}
	for _, slot := range t.cache {
		slot.rec.recno = -1
	}
	t.cache = make(map[int]*cacheSlot)
	t.packGen++
	for _, idx := range t.indexes {
		if err := idx.Reindex(); err != nil {
			return err
		}
	}
	return nil
}
