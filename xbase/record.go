package xbase

import (
	"fmt"

	"github.com/xbasekit/xbase/internal/codec"
)

// Record is one row of a table: a fixed-length byte buffer whose first byte
// is the delete flag, plus a side-map of memo values staged during a flux
// session. Records are owned by exactly one table and are only ever mutated
// through a flux.
type Record struct {
	table *Table
	recno int
	data  []byte

	// snapshot is the pre-flux buffer; non-nil exactly while a flux
	// session is open.
	snapshot []byte

	// staged holds pending memo values, flushed to the memo store only on
	// commit.
	staged map[string]Value
}

// Recno returns the zero-based record number, or -1 once the record has been
// physically packed away.
func (r *Record) Recno() int { return r.recno }

// IsDeleted reports the tombstone flag.
func (r *Record) IsDeleted() bool { return r.data[0] == deletedFlag }

// Value decodes one field. The null bit is consulted before the field codec.
func (r *Record) Value(name string) (Value, error) {
	t := r.table
	if t.closed {
		return Null, ErrClosed
	}
	fd, err := t.layout.field(name)
	if err != nil {
		return Null, err
	}
	if v, ok := r.staged[fd.Name]; ok {
		return v, nil
	}
	if r.nullBit(fd) {
		return Null, nil
	}
	td := t.dialect.types[fd.Type]
	return td.Unpack(r.data[fd.Start:fd.End()], fd, t.memoStore(), t.dec)
}

// Values decodes every user field, keyed by field name.
func (r *Record) Values() (map[string]Value, error) {
	out := make(map[string]Value, len(r.table.layout.fields))
	for _, fd := range r.table.layout.fields {
		v, err := r.Value(fd.Name)
		if err != nil {
			return nil, err
		}
		out[fd.Name] = v
	}
	return out, nil
}

// Delete sets the tombstone flag and persists it. The record stays on disk
// until the table is packed.
func (r *Record) Delete() error { return r.setDeleted(deletedFlag) }

// Recall clears the tombstone flag and persists it.
func (r *Record) Recall() error { return r.setDeleted(activeFlag) }

func (r *Record) setDeleted(flag byte) error {
	t := r.table
	switch {
	case t.closed:
		return ErrClosed
	case t.readOnly:
		return ErrReadOnly
	case r.recno < 0:
		return fmt.Errorf("record is no longer disk backed: %w", ErrNotFound)
	case r.snapshot != nil:
		return ErrInFlux
	}
	r.data[0] = flag
	if _, err := t.file.WriteAt([]byte{flag}, t.recordOffset(r.recno)); err != nil {
		return err
	}
	if err := t.file.Sync(); err != nil {
		return err
	}
	t.reindexRecord(r)
	return nil
}

// nullBit reports whether the field's bit is set in the null bitmap.
func (r *Record) nullBit(fd *codec.FieldDescriptor) bool {
	nf := r.table.layout.nullFlags
	if nf == nil || fd.NullSlot < 0 {
		return false
	}
	return r.data[nf.Start+fd.NullSlot/8]&(1<<(fd.NullSlot%8)) != 0
}

func (r *Record) setNullBit(fd *codec.FieldDescriptor, on bool) {
	nf := r.table.layout.nullFlags
	if nf == nil || fd.NullSlot < 0 {
		return
	}
	bit := byte(1 << (fd.NullSlot % 8))
	if on {
		r.data[nf.Start+fd.NullSlot/8] |= bit
	} else {
		r.data[nf.Start+fd.NullSlot/8] &^= bit
	}
}
