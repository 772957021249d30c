package xbase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xbasekit/xbase/internal/codec"
	"github.com/xbasekit/xbase/internal/utils"
)

// BackupPath returns where CreateBackup writes the table copy.
func (t *Table) BackupPath() string {
	ext := filepath.Ext(t.path)
	return strings.TrimSuffix(t.path, ext) + "_backup" + ext
}

// CreateBackup copies the table file (and memo sidecar, when present) under
// an adjacent name and returns the backup table path.
func (t *Table) CreateBackup() (string, error) {
	if t.closed {
		return "", ErrClosed
	}
	backup := t.BackupPath()
	if err := utils.CopyFile(t.path, backup); err != nil {
		return "", err
	}
	if t.layout.hasMemoFields() && !t.ignoreMemos {
		src := memoPath(t.path, t.dialect)
		dst := memoPath(backup, t.dialect)
		if utils.PathExists(src) {
			if err := utils.CopyFile(src, dst); err != nil {
				return "", err
			}
		}
	}
	logger.Infow("created backup", "path", backup)
	return backup, nil
}

// AddFields appends fields from a specification such as "WEIGHT N(8,3);
// NOTES M" to the table, replaying every record under the new layout. New
// fields start blank.
func (t *Table) AddFields(specs string) error {
	added, err := parseFieldSpecs(t.dialect, specs)
	if err != nil {
		return err
	}
	fields := append(cloneFields(t.layout.fields), added...)
	return t.restructure(fields, nil)
}

// DeleteFields removes the named fields, replaying every record under the
// new layout; the removed fields' byte ranges disappear from the record
// length.
func (t *Table) DeleteFields(names ...string) error {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		fd, err := t.layout.field(name)
		if err != nil {
			return err
		}
		drop[fd.Name] = true
	}
	var fields []*codec.FieldDescriptor
	for _, fd := range cloneFields(t.layout.fields) {
		if !drop[fd.Name] {
			fields = append(fields, fd)
		}
	}
	if len(fields) == 0 {
		return specErr("cannot delete every field of a table")
	}
	return t.restructure(fields, nil)
}

// ResizeField changes a character field's length, truncating values that no
// longer fit.
func (t *Table) ResizeField(name string, newLength int) error {
	fd, err := t.layout.field(name)
	if err != nil {
		return err
	}
	if fd.Type != codec.CharField {
		return specErr("only Character fields can be resized, %s is %s", fd.Name, fd.Type)
	}
	td := t.dialect.types[codec.CharField]
	length, _, _, err := td.Spec(fmt.Sprintf("(%d)", newLength), nil, nil)
	if err != nil {
		return err
	}
	fields := cloneFields(t.layout.fields)
	for _, f := range fields {
		if f.Name == fd.Name {
			f.Length = length
		}
	}
	clip := func(field string, v Value) Value {
		if field == fd.Name && v.Kind() == KindText && len(v.Text()) > length {
			return Text(v.Text()[:length])
		}
		return v
	}
	return t.restructure(fields, clip)
}

// RenameField renames a field in place. Byte offsets are unchanged, so only
// the descriptor block is rewritten; no record replay happens.
func (t *Table) RenameField(oldName, newName string) error {
	if err := t.writable(); err != nil {
		return err
	}
	fd, err := t.layout.field(oldName)
	if err != nil {
		return err
	}
	newName = strings.ToUpper(newName)
	if !codec.ValidFieldName(newName) {
		return specErr("%q is not a valid field name", newName)
	}
	if _, dup := t.layout.byName[newName]; dup {
		return specErr("field %s already exists", newName)
	}
	delete(t.layout.byName, fd.Name)
	fd.Name = newName
	t.layout.byName[newName] = fd
	return t.writeStructure()
}

// restructure is the shared safe-migration pattern: back the table up, read
// every record into memory, rewrite the header and descriptors for the new
// layout, and replay the records. A failure mid-replay leaves the backup
// file on disk as the recovery artifact.
func (t *Table) restructure(fields []*codec.FieldDescriptor, adjust func(string, Value) Value) error {
	if err := t.writable(); err != nil {
		return err
	}
	newLayout, err := buildLayout(t.dialect, fields)
	if err != nil {
		return err
	}

	type row struct {
		values  map[string]Value
		deleted bool
	}
	rows := make([]row, 0, t.hdr.recordCount)
	for recno := 0; recno < t.hdr.recordCount; recno++ {
		rec, err := t.At(recno)
		if err != nil {
			return err
		}
		values, err := rec.Values()
		if err != nil {
			return err
		}
		rows = append(rows, row{values: values, deleted: rec.IsDeleted()})
	}

	backup, err := t.CreateBackup()
	if err != nil {
		return err
	}

	for _, slot := range t.cache {
		slot.rec.recno = -1
	}
	t.cache = make(map[int]*cacheSlot)
	t.packGen++

	t.layout = newLayout
	t.hdr.recordCount = 0
	t.hdr.headerLength = newLayout.headerLength()
	t.hdr.recordLength = newLayout.recordLength
	if err := t.writeStructure(); err != nil {
		return replayError(backup, err)
	}
	if err := t.adjustMemo(); err != nil {
		return replayError(backup, err)
	}

	for _, r := range rows {
		values := make(map[string]Value, len(r.values))
		for name, v := range r.values {
			if _, keep := newLayout.byName[name]; !keep {
				continue
			}
			if adjust != nil {
				v = adjust(name, v)
			}
			values[name] = v
		}
		rec, err := t.Append(values)
		if err != nil {
			return replayError(backup, err)
		}
		if r.deleted {
			if err := rec.Delete(); err != nil {
				return replayError(backup, err)
			}
		}
	}

	for _, idx := range t.indexes {
		if err := idx.Reindex(); err != nil {
			return err
		}
	}
	logger.Infow("restructured table", "path", t.path, "fields", len(fields), "records", len(rows))
	return nil
}

func replayError(backup string, err error) error {
	return fmt.Errorf("restructure failed, recover from backup %s: %w", backup, err)
}

// adjustMemo opens, resets, or detaches the memo store after a layout
// change. Replay re-packs every surviving memo value, so the store starts
// empty.
func (t *Table) adjustMemo() error {
	if !t.layout.hasMemoFields() {
		if t.memo != nil {
			err := t.memo.Close()
			t.memo = nil
			return err
		}
		return nil
	}
	if t.memo != nil {
		return t.memo.Zap()
	}
	return t.attachMemo(&options{ignoreMemos: t.ignoreMemos}, true)
}

func cloneFields(fields []*codec.FieldDescriptor) []*codec.FieldDescriptor {
	out := make([]*codec.FieldDescriptor, len(fields))
	for i, fd := range fields {
		c := *fd
		out[i] = &c
	}
	return out
}
