package xbase

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xbasekit/xbase/internal/codepage"
	"github.com/xbasekit/xbase/internal/memo"
)

type options struct {
	dialect       *Dialect
	codePage      byte
	codePageSet   bool
	memoBlockSize int
	ignoreMemos   bool
	readOnly      bool
}

// Option configures Open and Create.
type Option func(*options)

// WithDialect forces a dialect instead of dispatching on the version byte.
// Required when the version byte is ambiguous (0x03 is legal under dBase III,
// Clipper and FoxPro alike).
func WithDialect(d *Dialect) Option {
	return func(o *options) { o.dialect = d }
}

// WithCodePage overrides the code page id used for text translation.
func WithCodePage(id byte) Option {
	return func(o *options) { o.codePage = id; o.codePageSet = true }
}

// WithMemoBlockSize sets the block size of a newly created variable-block
// memo file. Ignored for fixed-block dialects and pre-existing memo files.
func WithMemoBlockSize(size int) Option {
	return func(o *options) { o.memoBlockSize = size }
}

// WithIgnoreMemos disables memo access: memo reads yield empty values and
// memo writes go nowhere.
func WithIgnoreMemos() Option {
	return func(o *options) { o.ignoreMemos = true }
}

// ReadOnly opens the table read-only; every mutating operation returns
// ErrReadOnly.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// Open opens an existing table, resolving the dialect from the version byte
// unless one is forced with WithDialect. A version byte legal under more
// than one dialect yields an AmbiguousTypeError.
func Open(path string, opts ...Option) (*Table, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	flag := os.O_RDWR
	if o.readOnly {
		flag = os.O_RDONLY
	}
	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	t, err := openFile(file, path, &o)
	if err != nil {
		file.Close()
		return nil, err
	}
	return t, nil
}

func openFile(file *os.File, path string, o *options) (*Table, error) {
	raw := make([]byte, headerSize)
	if _, err := file.ReadAt(raw, 0); err != nil {
		return nil, structuref(path, "short header: %v", err)
	}
	version := raw[0]
	d := o.dialect
	if d == nil {
		switch candidates := candidatesFor(version); len(candidates) {
		case 0:
			return nil, structuref(path, "unknown version byte %#x", version)
		case 1:
			d = candidates[0]
		default:
			names := make([]string, len(candidates))
			for i, c := range candidates {
				names[i] = c.Name
			}
			return nil, &AmbiguousTypeError{Version: version, Candidates: names}
		}
	} else if !d.supports(version) {
		return nil, structuref(path, "version byte %#x is not a %s table", version, d.Name)
	}

	hdr := parseHeader(raw, d.Epoch)
	if hdr.headerLength < headerSize+1 || hdr.recordLength < 1 {
		return nil, structuref(path, "implausible header: header length %d, record length %d",
			hdr.headerLength, hdr.recordLength)
	}
	block := make([]byte, hdr.headerLength-headerSize)
	if _, err := file.ReadAt(block, headerSize); err != nil {
		return nil, structuref(path, "short field descriptor block: %v", err)
	}
	l, err := parseDescriptors(path, d, block)
	if err != nil {
		return nil, err
	}
	if l.headerLength() != hdr.headerLength {
		return nil, structuref(path, "header length %d does not match %d fields",
			hdr.headerLength, len(l.allFields()))
	}
	if l.recordLength != hdr.recordLength {
		return nil, structuref(path, "record length %d does not match field lengths summing to %d",
			hdr.recordLength, l.recordLength)
	}

	if o.codePageSet {
		hdr.codePage = o.codePage
	}
	dec, enc, err := codepage.Lookup(hdr.codePage)
	if err != nil {
		return nil, err
	}

	t := &Table{
		path:        path,
		dialect:     d,
		file:        file,
		hdr:         hdr,
		layout:      l,
		dec:         dec,
		enc:         enc,
		readOnly:    o.readOnly,
		ignoreMemos: o.ignoreMemos,
		cache:       make(map[int]*cacheSlot),
	}
	if err := t.attachMemo(o, false); err != nil {
		return nil, err
	}
	logger.Debugw("opened table", "path", path, "dialect", d.Name, "records", hdr.recordCount)
	return t, nil
}

// Create builds a new table from a field specification such as
// "NAME C(30); AGE N(3,0); NOTES M", replacing any existing file.
func Create(path string, d *Dialect, fieldSpecs string, opts ...Option) (*Table, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.readOnly {
		return nil, ErrReadOnly
	}
	fields, err := parseFieldSpecs(d, fieldSpecs)
	if err != nil {
		return nil, err
	}
	l, err := buildLayout(d, fields)
	if err != nil {
		return nil, err
	}
	cp := d.CodePage
	if o.codePageSet {
		cp = o.codePage
	}
	dec, enc, err := codepage.Lookup(cp)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	t := &Table{
		path:        path,
		dialect:     d,
		file:        file,
		hdr: header{
			version:      d.versionFor(l.hasMemoFields()),
			headerLength: l.headerLength(),
			recordLength: l.recordLength,
			codePage:     cp,
		},
		layout:      l,
		dec:         dec,
		enc:         enc,
		ignoreMemos: o.ignoreMemos,
		cache:       make(map[int]*cacheSlot),
	}
	if err := t.writeStructure(); err != nil {
		file.Close()
		return nil, err
	}
	if err := t.attachMemo(&o, true); err != nil {
		file.Close()
		return nil, err
	}
	logger.Debugw("created table", "path", path, "dialect", d.Name, "fields", len(fields))
	return t, nil
}

// writeStructure persists the header, descriptor block, and the trailing EOF
// byte of an empty table.
func (t *Table) writeStructure() error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	if _, err := t.file.WriteAt(t.layout.encodeDescriptors(), headerSize); err != nil {
		return err
	}
	t.truncateTo(t.hdr.recordCount)
	return t.file.Sync()
}

// attachMemo opens or creates the memo sidecar when the layout carries memo
// fields.
func (t *Table) attachMemo(o *options, create bool) error {
	if !t.layout.hasMemoFields() {
		t.memo = nil
		return nil
	}
	if t.ignoreMemos {
		t.memo = memo.Discard{}
		return nil
	}
	path := memoPath(t.path, t.dialect)
	if t.dialect.VariableMemo {
		store, err := memo.OpenFpt(path, create || !t.readOnly, t.readOnly, o.memoBlockSize)
		if err != nil {
			return err
		}
		t.memo = store
		return nil
	}
	store, err := memo.OpenDbt(path, create || !t.readOnly, t.readOnly)
	if err != nil {
		return err
	}
	t.memo = store
	return nil
}

func memoPath(path string, d *Dialect) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + d.MemoExt
}
