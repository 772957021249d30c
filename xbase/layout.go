package xbase

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/xbasekit/xbase/internal/codec"
)

// nullFlagsName is the reserved name of the hidden null bitmap pseudo-field.
const nullFlagsName = "_NULLFLAGS"

// layout is the decoded field-descriptor block shared by all records of a
// table: field geometry, the hidden null bitmap, and the blank-record
// template.
type layout struct {
	dialect   *Dialect
	fields    []*codec.FieldDescriptor
	nullFlags *codec.FieldDescriptor
	byName    map[string]*codec.FieldDescriptor

	recordLength int
	blank        []byte
}

// buildLayout packs descriptors into consecutive byte offsets (offset 0 is
// the delete flag), assigns null bitmap slots, and computes the blank-record
// template. The descriptors are taken over and mutated.
func buildLayout(d *Dialect, fields []*codec.FieldDescriptor) (*layout, error) {
	if len(fields) == 0 {
		return nil, specErr("tables must have at least one field")
	}
	if len(fields) > d.MaxFields {
		return nil, specErr("tables are limited to %d fields, not %d", d.MaxFields, len(fields))
	}
	l := &layout{
		dialect: d,
		fields:  fields,
		byName:  make(map[string]*codec.FieldDescriptor, len(fields)),
	}
	start := 1
	nullable := 0
	for _, fd := range fields {
		td, ok := d.types[fd.Type]
		if !ok || fd.Type == codec.NullFlagField {
			return nil, specErr("unknown field type %q for field %s", string(rune(fd.Type)), fd.Name)
		}
		fd.Name = strings.ToUpper(fd.Name)
		if !codec.ValidFieldName(fd.Name) {
			return nil, specErr("%q is not a valid field name", fd.Name)
		}
		if _, dup := l.byName[fd.Name]; dup {
			return nil, specErr("duplicate field name %s", fd.Name)
		}
		fd.Start = start
		start += fd.Length
		fd.EmptyAsNull = td.NullWhenBlank
		if fd.Nullable() {
			fd.NullSlot = nullable
			nullable++
		} else {
			fd.NullSlot = -1
		}
		l.byName[fd.Name] = fd
	}
	if nullable > 0 {
		l.nullFlags = &codec.FieldDescriptor{
			Name:     nullFlagsName,
			Type:     codec.NullFlagField,
			Start:    start,
			Length:   (nullable + 7) / 8,
			Flags:    codec.BinaryFlag | codec.SystemFlag,
			NullSlot: -1,
		}
		start += l.nullFlags.Length
	}
	l.recordLength = start
	l.buildBlank()
	return l, nil
}

func (l *layout) buildBlank() {
	blank := make([]byte, l.recordLength)
	blank[0] = activeFlag
	for _, fd := range l.fields {
		copy(blank[fd.Start:fd.End()], l.dialect.types[fd.Type].Blank(fd.Length))
	}
	if l.nullFlags != nil {
		// a fresh record has every nullable field null
		for i := l.nullFlags.Start; i < l.nullFlags.End(); i++ {
			blank[i] = 0xFF
		}
	}
	l.blank = blank
}

// allFields returns the user fields plus the hidden null bitmap, in
// descriptor order.
func (l *layout) allFields() []*codec.FieldDescriptor {
	if l.nullFlags == nil {
		return l.fields
	}
	return append(append([]*codec.FieldDescriptor{}, l.fields...), l.nullFlags)
}

// field resolves a name case-insensitively to a user field descriptor.
func (l *layout) field(name string) (*codec.FieldDescriptor, error) {
	fd, ok := l.byName[strings.ToUpper(name)]
	if !ok {
		return nil, &FieldMissingError{Field: name}
	}
	return fd, nil
}

// names returns the user field names in descriptor order.
func (l *layout) names() []string {
	out := make([]string, len(l.fields))
	for i, fd := range l.fields {
		out[i] = fd.Name
	}
	return out
}

func (l *layout) hasMemoFields() bool {
	for _, fd := range l.fields {
		if l.dialect.types[fd.Type].Memo {
			return true
		}
	}
	return false
}

// headerLength is the on-disk offset of the first record.
func (l *layout) headerLength() int {
	return headerSize + headerSize*len(l.allFields()) + 1 + l.dialect.HeaderExtra
}

// parseDescriptors decodes the field-descriptor block found between the
// header and the first record. Every entry is 32 bytes; the block ends with
// a 0x0D terminator. Offsets are recomputed from field order rather than
// trusted from disk.
func parseDescriptors(path string, d *Dialect, block []byte) (*layout, error) {
	var fields []*codec.FieldDescriptor
	offset := 0
	for {
		if offset >= len(block) {
			return nil, structuref(path, "field descriptor block is missing its terminator")
		}
		if block[offset] == descriptorTerminator {
			break
		}
		if offset+headerSize > len(block) {
			return nil, structuref(path, "field descriptor block is not a multiple of 32 bytes")
		}
		entry := block[offset : offset+headerSize]
		fd, err := parseDescriptor(path, d, entry)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fd)
		offset += headerSize
	}
	var hidden *codec.FieldDescriptor
	if n := len(fields); n > 0 && fields[n-1].Type == codec.NullFlagField {
		hidden = fields[n-1]
		fields = fields[:n-1]
	}
	l, err := buildLayout(d, fields)
	if err != nil {
		return nil, structuref(path, "invalid field layout: %v", err)
	}
	if (hidden == nil) != (l.nullFlags == nil) {
		return nil, structuref(path, "null bitmap field inconsistent with nullable field flags")
	}
	return l, nil
}

func parseDescriptor(path string, d *Dialect, entry []byte) (*codec.FieldDescriptor, error) {
	name := strings.TrimRight(string(bytes.TrimRight(entry[0:11], "\x00")), " ")
	ft := codec.FieldType(entry[11])
	length := int(entry[16])
	decimals := int(entry[17])
	flags := codec.FieldFlag(entry[18])
	if _, ok := d.types[ft]; !ok {
		return nil, structuref(path, "unknown field type %q for field %s", string(rune(ft)), name)
	}
	if d.LongChar && ft == codec.CharField && decimals > 0 {
		length += 256 * decimals
		decimals = 0
	}
	if length == 0 {
		return nil, structuref(path, "field %s has zero length", name)
	}
	return &codec.FieldDescriptor{
		Name:     name,
		Type:     ft,
		Length:   length,
		Decimals: decimals,
		Flags:    flags,
		NullSlot: -1,
	}, nil
}

// encodeDescriptors serializes the field-descriptor block, terminator and
// reserved trailer included.
func (l *layout) encodeDescriptors() []byte {
	fields := l.allFields()
	out := make([]byte, headerSize*len(fields)+1+l.dialect.HeaderExtra)
	for i, fd := range fields {
		entry := out[i*headerSize : (i+1)*headerSize]
		copy(entry[0:11], fd.Name)
		entry[11] = byte(fd.Type)
		binary.LittleEndian.PutUint32(entry[12:16], uint32(fd.Start))
		length, decimals := fd.Length, fd.Decimals
		if l.dialect.LongChar && fd.Type == codec.CharField {
			length, decimals = fd.Length%256, fd.Length/256
		}
		entry[16] = byte(length)
		entry[17] = byte(decimals)
		entry[18] = byte(fd.Flags)
	}
	out[headerSize*len(fields)] = descriptorTerminator
	return out
}

// parseFieldSpecs parses a semicolon-separated field specification such as
// "NAME C(30); AGE N(3,0); NOTES M" into descriptors for the dialect.
func parseFieldSpecs(d *Dialect, specs string) ([]*codec.FieldDescriptor, error) {
	var fields []*codec.FieldDescriptor
	for _, spec := range strings.Split(specs, ";") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		fd, err := parseFieldSpec(d, spec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fd)
	}
	if len(fields) == 0 {
		return nil, specErr("no fields in specification %q", specs)
	}
	return fields, nil
}

func parseFieldSpec(d *Dialect, spec string) (*codec.FieldDescriptor, error) {
	name, rest, ok := strings.Cut(spec, " ")
	rest = strings.TrimSpace(rest)
	if !ok || rest == "" {
		return nil, specErr("%q should be name, type and optional flags", spec)
	}
	ft := codec.FieldType(rest[0])
	td, known := d.types[ft]
	if !known || ft == codec.NullFlagField {
		return nil, specErr("unknown field type %q in %q", string(rest[0]), spec)
	}
	rest = rest[1:]
	args := ""
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, specErr("unbalanced parentheses in %q", spec)
		}
		// sizes may contain spaces, as in "N(6, 2)"
		args = strings.ReplaceAll(rest[:end+1], " ", "")
		rest = rest[end+1:]
	}
	length, decimals, flags, err := td.Spec(args, strings.Fields(rest), codec.AllowedFlags(d.family, ft))
	if err != nil {
		return nil, err
	}
	return &codec.FieldDescriptor{
		Name:     strings.ToUpper(name),
		Type:     ft,
		Length:   length,
		Decimals: decimals,
		Flags:    flags,
		NullSlot: -1,
	}, nil
}

func specErr(format string, args ...any) error {
	return &FieldSpecError{Message: fmt.Sprintf(format, args...)}
}
