package xbase

import (
	"fmt"
	"strings"
)

type listEntry struct {
	table *Table
	recno int
	key   Key
}

// List is an ordered, key-deduplicated collection of cross-table record
// references. It holds (table, record number, key) triples, never record
// objects, and remembers each table's pack generation at admission time: a
// table packed afterwards makes every access fail with a StaleError instead
// of silently resolving renumbered records.
type List struct {
	entries []listEntry
	seen    map[string]struct{}
	gens    map[*Table]int
	pos     int
}

// NewList returns an empty list.
func NewList() *List {
	return &List{
		seen: make(map[string]struct{}),
		gens: make(map[*Table]int),
	}
}

// List builds a list over the table's live records using keyFn for
// deduplication keys.
func (t *Table) List(keyFn KeyFunc) (*List, error) {
	l := NewList()
	err := t.Scan(func(r *Record) error {
		key, err := keyFn(r)
		if err == ErrSkipRecord {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = l.Add(r, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// fingerprint is the canonical form used for O(1) duplicate rejection.
func fingerprint(key Key) string {
	var b strings.Builder
	for _, v := range key {
		fmt.Fprintf(&b, "%d\x00%s\x00", v.Kind(), v.String())
	}
	return b.String()
}

// Add admits one record under the given key. It reports false when an entry
// with an equal key is already present.
func (l *List) Add(r *Record, key Key) (bool, error) {
	t := r.table
	if t.closed {
		return false, ErrClosed
	}
	if r.recno < 0 {
		return false, fmt.Errorf("record is no longer disk backed: %w", ErrNotFound)
	}
	if gen, ok := l.gens[t]; ok {
		if gen != t.packGen {
			return false, &StaleError{Table: t.path}
		}
	} else {
		l.gens[t] = t.packGen
	}
	fp := fingerprint(key)
	if _, dup := l.seen[fp]; dup {
		return false, nil
	}
	l.seen[fp] = struct{}{}
	l.entries = append(l.entries, listEntry{table: t, recno: r.recno, key: key})
	return true, nil
}

// check validates every referenced table before navigation.
func (l *List) check() error {
	for t, gen := range l.gens {
		if t.closed {
			return ErrClosed
		}
		if t.packGen != gen {
			return &StaleError{Table: t.path}
		}
	}
	return nil
}

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

// Top positions at the first entry and returns its record.
func (l *List) Top() (*Record, error) { return l.Goto(0) }

// Bottom positions at the last entry and returns its record.
func (l *List) Bottom() (*Record, error) { return l.Goto(len(l.entries) - 1) }

// Skip moves the position by n (negative moves backwards) and returns the
// record there.
func (l *List) Skip(n int) (*Record, error) { return l.Goto(l.pos + n) }

// Goto positions at entry i and returns its record.
func (l *List) Goto(i int) (*Record, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(l.entries) {
		return nil, fmt.Errorf("list position %d out of range 0..%d: %w", i, len(l.entries)-1, ErrNotFound)
	}
	l.pos = i
	e := l.entries[i]
	return e.table.At(e.recno)
}

// Current returns the record at the current position.
func (l *List) Current() (*Record, error) { return l.Goto(l.pos) }

// Key returns the admission key of entry i.
func (l *List) Key(i int) (Key, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(l.entries) {
		return nil, ErrNotFound
	}
	return l.entries[i].key, nil
}

// Union returns a new list holding the receiver's entries plus every entry
// of other whose key is not already present. Entry order is preserved.
func (l *List) Union(other *List) (*List, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if err := other.check(); err != nil {
		return nil, err
	}
	out := NewList()
	for _, e := range append(append([]listEntry{}, l.entries...), other.entries...) {
		fp := fingerprint(e.key)
		if _, dup := out.seen[fp]; dup {
			continue
		}
		out.seen[fp] = struct{}{}
		out.entries = append(out.entries, e)
		if _, ok := out.gens[e.table]; !ok {
			out.gens[e.table] = e.table.packGen
		}
	}
	return out, nil
}

// Difference returns a new list holding the receiver's entries whose keys do
// not appear in other.
func (l *List) Difference(other *List) (*List, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if err := other.check(); err != nil {
		return nil, err
	}
	out := NewList()
	for _, e := range l.entries {
		fp := fingerprint(e.key)
		if _, drop := other.seen[fp]; drop {
			continue
		}
		if _, dup := out.seen[fp]; dup {
			continue
		}
		out.seen[fp] = struct{}{}
		out.entries = append(out.entries, e)
		if _, ok := out.gens[e.table]; !ok {
			out.gens[e.table] = e.table.packGen
		}
	}
	return out, nil
}
