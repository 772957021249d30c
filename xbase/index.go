package xbase

import (
	"bytes"
	"errors"
	"sort"
	"strings"
)

// Key is a compound index key. Components are compared left to right; Null
// orders before every other value.
type Key []Value

// Compare orders two values of like kinds; Null sorts first, numbers compare
// across Int/Float, and unlike kinds fall back to kind order so compound
// keys over mixed columns stay totally ordered.
func compareValues(a, b Value) int {
	ak, bk := a.Kind(), b.Kind()
	if ak == KindNull || bk == KindNull {
		return kindOrder(ak) - kindOrder(bk)
	}
	numeric := func(k Kind) bool { return k == KindInt || k == KindFloat }
	switch {
	case numeric(ak) && numeric(bk):
		af, bf := a.Float(), b.Float()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case ak != bk:
		return kindOrder(ak) - kindOrder(bk)
	}
	switch ak {
	case KindText:
		return strings.Compare(a.Text(), b.Text())
	case KindBool:
		switch {
		case !a.Bool() && b.Bool():
			return -1
		case a.Bool() && !b.Bool():
			return 1
		}
		return 0
	case KindDate, KindDateTime:
		switch {
		case a.Time().Before(b.Time()):
			return -1
		case a.Time().After(b.Time()):
			return 1
		}
		return 0
	case KindBytes:
		return bytes.Compare(a.Bytes(), b.Bytes())
	}
	return 0
}

func kindOrder(k Kind) int {
	if k == KindNull {
		return -1
	}
	return int(k)
}

// CompareKeys orders two compound keys lexicographically; a key that is a
// strict prefix of another sorts first.
func CompareKeys(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// KeyFunc derives an index key from a record. Returning ErrSkipRecord keeps
// the record out of the index.
type KeyFunc func(*Record) (Key, error)

// FieldKey returns a KeyFunc over the named fields, skipping deleted
// records.
func FieldKey(names ...string) KeyFunc {
	return func(r *Record) (Key, error) {
		if r.IsDeleted() {
			return nil, ErrSkipRecord
		}
		key := make(Key, len(names))
		for i, name := range names {
			v, err := r.Value(name)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		return key, nil
	}
}

// Index is an ordered in-memory projection over a table's records: a sorted
// key list and a parallel record-number list, plus a record-number to key
// map for incremental re-keying. Indexes hold record numbers, never record
// objects.
type Index struct {
	table   *Table
	keyFn   KeyFunc
	keys    []Key
	recnos  []int
	byRecno map[int]Key
}

// NewIndex scans every record once, building the ordered projection, and
// registers the index for incremental re-keying on commits and rebuilds on
// pack.
func (t *Table) NewIndex(keyFn KeyFunc) (*Index, error) {
	if t.closed {
		return nil, ErrClosed
	}
	idx := &Index{table: t, keyFn: keyFn}
	if err := idx.Reindex(); err != nil {
		return nil, err
	}
	t.indexes = append(t.indexes, idx)
	return idx, nil
}

// Close unregisters the index from its table.
func (idx *Index) Close() {
	t := idx.table
	for i, registered := range t.indexes {
		if registered == idx {
			t.indexes = append(t.indexes[:i], t.indexes[i+1:]...)
			break
		}
	}
	idx.keys, idx.recnos, idx.byRecno = nil, nil, nil
}

// Len returns the number of indexed records.
func (idx *Index) Len() int { return len(idx.keys) }

// Reindex rebuilds the whole projection from the table. Required after a
// pack, when every record number has moved.
func (idx *Index) Reindex() error {
	t := idx.table
	if t.closed {
		return ErrClosed
	}
	idx.keys = idx.keys[:0]
	idx.recnos = idx.recnos[:0]
	idx.byRecno = make(map[int]Key)
	for recno := 0; recno < t.hdr.recordCount; recno++ {
		rec, err := t.At(recno)
		if err != nil {
			return err
		}
		key, err := idx.keyFn(rec)
		if errors.Is(err, ErrSkipRecord) {
			continue
		}
		if err != nil {
			return err
		}
		idx.insert(key, recno)
	}
	return nil
}

// insert places the entry after any equal keys, so duplicate-key insertion
// order is stable.
func (idx *Index) insert(key Key, recno int) {
	pos := sort.Search(len(idx.keys), func(i int) bool {
		return CompareKeys(idx.keys[i], key) > 0
	})
	idx.keys = append(idx.keys, nil)
	copy(idx.keys[pos+1:], idx.keys[pos:])
	idx.keys[pos] = key
	idx.recnos = append(idx.recnos, 0)
	copy(idx.recnos[pos+1:], idx.recnos[pos:])
	idx.recnos[pos] = recno
	idx.byRecno[recno] = key
}

func (idx *Index) remove(recno int) {
	key, ok := idx.byRecno[recno]
	if !ok {
		return
	}
	delete(idx.byRecno, recno)
	lo := idx.bisectLeft(key)
	for i := lo; i < len(idx.keys) && CompareKeys(idx.keys[i], key) == 0; i++ {
		if idx.recnos[i] == recno {
			idx.keys = append(idx.keys[:i], idx.keys[i+1:]...)
			idx.recnos = append(idx.recnos[:i], idx.recnos[i+1:]...)
			return
		}
	}
}

// reindexRecord re-evaluates one record after a commit: delete-then-reinsert
// when its key changed.
func (idx *Index) reindexRecord(r *Record) {
	key, err := idx.keyFn(r)
	if errors.Is(err, ErrSkipRecord) {
		idx.remove(r.recno)
		return
	}
	if err != nil {
		logger.Errorw("index key function failed; record dropped from index",
			"recno", r.recno, "error", err)
		idx.remove(r.recno)
		return
	}
	if old, ok := idx.byRecno[r.recno]; ok {
		if CompareKeys(old, key) == 0 {
			return
		}
		idx.remove(r.recno)
	}
	idx.insert(key, r.recno)
}

// insertRecord admits a freshly appended record.
func (idx *Index) insertRecord(r *Record) {
	key, err := idx.keyFn(r)
	if errors.Is(err, ErrSkipRecord) {
		return
	}
	if err != nil {
		logger.Errorw("index key function failed; record not indexed",
			"recno", r.recno, "error", err)
		return
	}
	idx.insert(key, r.recno)
}

func (idx *Index) bisectLeft(key Key) int {
	return sort.Search(len(idx.keys), func(i int) bool {
		return CompareKeys(idx.keys[i], key) >= 0
	})
}

func (idx *Index) bisectRight(key Key) int {
	return sort.Search(len(idx.keys), func(i int) bool {
		return CompareKeys(idx.keys[i], key) > 0
	})
}

// Search locates key in the ordered projection, returning the nearest
// insertion point and whether an exact entry exists there. With partial set,
// a key matches when its leading components are equal and its last text
// component is a prefix of the stored component.
func (idx *Index) Search(key Key, partial bool) (int, bool, error) {
	if idx.table.closed {
		return 0, false, ErrClosed
	}
	pos := idx.bisectLeft(key)
	if pos >= len(idx.keys) {
		return pos, false, nil
	}
	if partial {
		return pos, matchPartial(idx.keys[pos], key), nil
	}
	return pos, CompareKeys(idx.keys[pos], key) == 0, nil
}

func matchPartial(stored, want Key) bool {
	if len(want) == 0 || len(stored) < len(want) {
		return false
	}
	last := len(want) - 1
	for i := 0; i < last; i++ {
		if compareValues(stored[i], want[i]) != 0 {
			return false
		}
	}
	if stored[last].Kind() == KindText && want[last].Kind() == KindText {
		return strings.HasPrefix(stored[last].Text(), want[last].Text())
	}
	return compareValues(stored[last], want[last]) == 0
}

// Find returns the first record whose key equals key exactly.
func (idx *Index) Find(key Key) (*Record, error) {
	pos, found, err := idx.Search(key, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return idx.Record(pos)
}

// FindPrefix returns every record matching a partial key.
func (idx *Index) FindPrefix(key Key) ([]*Record, error) {
	pos, _, err := idx.Search(key, true)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for ; pos < len(idx.keys) && matchPartial(idx.keys[pos], key); pos++ {
		rec, err := idx.Record(pos)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Between returns the record numbers with lo <= key < hi, in key order.
func (idx *Index) Between(lo, hi Key) ([]int, error) {
	if idx.table.closed {
		return nil, ErrClosed
	}
	start, end := idx.bisectLeft(lo), idx.bisectLeft(hi)
	out := make([]int, end-start)
	copy(out, idx.recnos[start:end])
	return out, nil
}

// Record returns the record at the given index position.
func (idx *Index) Record(pos int) (*Record, error) {
	if idx.table.closed {
		return nil, ErrClosed
	}
	if pos < 0 || pos >= len(idx.recnos) {
		return nil, ErrNotFound
	}
	return idx.table.At(idx.recnos[pos])
}

// Recnos returns the indexed record numbers in key order.
func (idx *Index) Recnos() ([]int, error) {
	if idx.table.closed {
		return nil, ErrClosed
	}
	out := make([]int, len(idx.recnos))
	copy(out, idx.recnos)
	return out, nil
}

// Keys returns the keys in order.
func (idx *Index) Keys() ([]Key, error) {
	if idx.table.closed {
		return nil, ErrClosed
	}
	out := make([]Key, len(idx.keys))
	copy(out, idx.keys)
	return out, nil
}
