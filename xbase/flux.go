package xbase

import "fmt"

// Flux is a scoped transactional editing session on one record. Field writes
// validate eagerly, memo writes are staged, and the whole session either
// commits atomically or leaves the record exactly as it was.
type Flux struct {
	rec  *Record
	done bool
}

// StartFlux snapshots the record buffer and opens an editing session.
func (r *Record) StartFlux() (*Flux, error) {
	t := r.table
	switch {
	case t.closed:
		return nil, ErrClosed
	case t.readOnly:
		return nil, ErrReadOnly
	case r.recno < 0:
		return nil, fmt.Errorf("record is no longer disk backed: %w", ErrNotFound)
	case r.snapshot != nil:
		return nil, ErrInFlux
	}
	r.snapshot = append([]byte(nil), r.data...)
	r.staged = make(map[string]Value)
	return &Flux{rec: r}, nil
}

// Update runs fn inside a flux session and commits when it returns nil. Any
// error, or a panic inside fn, rolls the record back instead.
func (r *Record) Update(fn func(*Flux) error) error {
	f, err := r.StartFlux()
	if err != nil {
		return err
	}
	defer func() {
		if !f.done {
			f.Rollback()
		}
	}()
	if err := fn(f); err != nil {
		return err
	}
	return f.Commit()
}

// Set writes one field. Non-memo values are packed (and validated)
// immediately into the in-memory buffer; memo values are staged until
// Commit. Setting a nullable field to Null sets its null bit and leaves the
// field bytes as they were.
func (f *Flux) Set(name string, v Value) error {
	r := f.rec
	if f.done || r.snapshot == nil {
		return ErrNoFlux
	}
	t := r.table
	fd, err := t.layout.field(name)
	if err != nil {
		return err
	}
	td := t.dialect.types[fd.Type]
	if v.IsNull() && fd.Nullable() {
		r.setNullBit(fd, true)
		if td.Memo {
			r.staged[fd.Name] = Null
		}
		return nil
	}
	if td.Memo {
		r.staged[fd.Name] = v
		r.setNullBit(fd, false)
		return nil
	}
	out, err := td.Pack(v, fd, nil, t.enc)
	if err != nil {
		return err
	}
	copy(r.data[fd.Start:fd.End()], out)
	r.setNullBit(fd, false)
	return nil
}

// SetAll writes several fields, stopping at the first failure.
func (f *Flux) SetAll(values map[string]Value) error {
	for name, v := range values {
		if err := f.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Commit flushes staged memo values to the memo store, persists the record
// buffer at its fixed offset, and re-keys the table's indexes. On any
// failure the pre-flux buffer is restored both in memory and on disk before
// the error is returned.
func (f *Flux) Commit() error {
	r := f.rec
	if f.done || r.snapshot == nil {
		return ErrNoFlux
	}
	t := r.table
	if err := r.flushStaged(); err != nil {
		return f.restore(err)
	}
	if err := t.writeRecord(r.recno, r.data); err != nil {
		return f.restore(err)
	}
	f.finish()
	t.reindexRecord(r)
	return nil
}

// Rollback discards all pending changes and restores the snapshot. It is a
// no-op on a finished session.
func (f *Flux) Rollback() error {
	r := f.rec
	if f.done || r.snapshot == nil {
		return nil
	}
	copy(r.data, r.snapshot)
	f.finish()
	return nil
}

// restore puts the pre-flux buffer back in memory and on disk, then returns
// the failure that triggered it.
func (f *Flux) restore(cause error) error {
	r := f.rec
	copy(r.data, r.snapshot)
	if err := r.table.writeRecord(r.recno, r.data); err != nil {
		logger.Errorw("restoring record after failed commit", "recno", r.recno, "error", err)
	}
	f.finish()
	return cause
}

func (f *Flux) finish() {
	f.rec.snapshot = nil
	f.rec.staged = nil
	f.done = true
}
