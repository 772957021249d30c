package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbasekit/xbase/internal/codec"
)

// fakeStore is an in-memory MemoStore for codec tests.
type fakeStore struct {
	blocks map[int][]byte
	next   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{blocks: make(map[int][]byte), next: 1}
}

func (s *fakeStore) GetMemo(block int) ([]byte, error) {
	return s.blocks[block], nil
}

func (s *fakeStore) PutMemo(data []byte) (int, error) {
	block := s.next
	s.blocks[block] = data
	s.next++
	return block, nil
}

func field(name string, ft codec.FieldType, length, decimals int) *codec.FieldDescriptor {
	return &codec.FieldDescriptor{
		Name:     name,
		Type:     ft,
		Start:    1,
		Length:   length,
		Decimals: decimals,
		NullSlot: -1,
	}
}

func roundTrip(t *testing.T, reg codec.Registry, fd *codec.FieldDescriptor, v codec.Value) codec.Value {
	t.Helper()

	td := reg[fd.Type]
	store := newFakeStore()
	packed, err := td.Pack(v, fd, store, nil)
	require.NoError(t, err)
	require.Len(t, packed, fd.Length)

	got, err := td.Unpack(packed, fd, store, nil)
	require.NoError(t, err)
	return got
}

func TestCharacterRoundTrip(t *testing.T) {
	reg := codec.DBase3Types()
	fd := field("NAME", codec.CharField, 10, 0)

	t.Run("plain text", func(t *testing.T) {
		got := roundTrip(t, reg, fd, codec.Text("Alice"))
		require.True(t, got.Equal(codec.Text("Alice")))
	})

	t.Run("trailing spaces trimmed", func(t *testing.T) {
		got := roundTrip(t, reg, fd, codec.Text("Bob   "))
		require.True(t, got.Equal(codec.Text("Bob")))
	})

	t.Run("too long overflows", func(t *testing.T) {
		td := reg[codec.CharField]
		_, err := td.Pack(codec.Text("far too long for ten"), fd, nil, nil)
		var overflow *codec.OverflowError
		require.ErrorAs(t, err, &overflow)
		require.Equal(t, "NAME", overflow.Field)
	})

	t.Run("blank decodes to empty text by default", func(t *testing.T) {
		got := roundTrip(t, reg, fd, codec.Null)
		require.True(t, got.Equal(codec.Text("")))
	})

	t.Run("blank decodes to null when configured", func(t *testing.T) {
		nullable := field("NAME", codec.CharField, 10, 0)
		nullable.EmptyAsNull = true
		got := roundTrip(t, reg, nullable, codec.Null)
		require.True(t, got.IsNull())
	})
}

func TestNumericRoundTrip(t *testing.T) {
	reg := codec.DBase3Types()

	t.Run("integer width", func(t *testing.T) {
		fd := field("AGE", codec.NumericField, 3, 0)
		got := roundTrip(t, reg, fd, codec.Int(30))
		require.True(t, got.Equal(codec.Int(30)))
	})

	t.Run("decimals", func(t *testing.T) {
		fd := field("PRICE", codec.NumericField, 8, 2)
		got := roundTrip(t, reg, fd, codec.Float(1234.56))
		require.True(t, got.Equal(codec.Float(1234.56)))
	})

	t.Run("negative", func(t *testing.T) {
		fd := field("DELTA", codec.NumericField, 6, 0)
		got := roundTrip(t, reg, fd, codec.Int(-42))
		require.True(t, got.Equal(codec.Int(-42)))
	})

	t.Run("scientific notation compacts tiny fractions", func(t *testing.T) {
		fd := field("EPS", codec.NumericField, 8, 6)
		td := reg[codec.NumericField]
		packed, err := td.Pack(codec.Float(-0.0000054), fd, nil, nil)
		require.NoError(t, err)
		require.Len(t, packed, 8)

		got, err := td.Unpack(packed, fd, nil, nil)
		require.NoError(t, err)
		require.InEpsilon(t, -0.0000054, got.Float(), 1e-9)
	})

	t.Run("integer portion too big overflows", func(t *testing.T) {
		fd := field("SMALL", codec.NumericField, 5, 0)
		td := reg[codec.NumericField]
		_, err := td.Pack(codec.Int(1234567), fd, nil, nil)
		var overflow *codec.OverflowError
		require.ErrorAs(t, err, &overflow)

		_, err = td.Pack(codec.Float(-123456.7), fd, nil, nil)
		require.ErrorAs(t, err, &overflow)
	})

	t.Run("overflow beyond compaction", func(t *testing.T) {
		fd := field("TINY", codec.NumericField, 3, 0)
		td := reg[codec.NumericField]
		_, err := td.Pack(codec.Float(1e300), fd, nil, nil)
		var overflow *codec.OverflowError
		require.ErrorAs(t, err, &overflow)
	})

	t.Run("blank decodes to zero unless null configured", func(t *testing.T) {
		fd := field("AGE", codec.NumericField, 3, 0)
		td := reg[codec.NumericField]
		got, err := td.Unpack([]byte("   "), fd, nil, nil)
		require.NoError(t, err)
		require.True(t, got.Equal(codec.Int(0)))

		fd.EmptyAsNull = true
		got, err = td.Unpack([]byte("   "), fd, nil, nil)
		require.NoError(t, err)
		require.True(t, got.IsNull())
	})
}

func TestDateRoundTrip(t *testing.T) {
	reg := codec.DBase3Types()
	fd := field("BORN", codec.DateField, 8, 0)
	td := reg[codec.DateField]

	got := roundTrip(t, reg, fd, codec.Date(time.Date(1989, 11, 9, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "1989-11-09", got.Time().Format("2006-01-02"))

	blank, err := td.Unpack([]byte("        "), fd, nil, nil)
	require.NoError(t, err)
	require.True(t, blank.IsNull())
}

func TestLogicalRoundTrip(t *testing.T) {
	reg := codec.DBase3Types()
	fd := field("PAID", codec.LogicalField, 1, 0)
	td := reg[codec.LogicalField]

	require.True(t, roundTrip(t, reg, fd, codec.Bool(true)).Bool())
	require.False(t, roundTrip(t, reg, fd, codec.Bool(false)).Bool())

	for _, b := range []byte{'t', 'T', 'y', 'Y'} {
		got, err := td.Unpack([]byte{b}, fd, nil, nil)
		require.NoError(t, err)
		require.True(t, got.Bool())
	}
	_, err := td.Unpack([]byte{'q'}, fd, nil, nil)
	require.Error(t, err)
}

func TestMemoRoundTrip(t *testing.T) {
	t.Run("ascii block reference", func(t *testing.T) {
		reg := codec.DBase3Types()
		fd := field("NOTES", codec.MemoField, 10, 0)
		td := reg[codec.MemoField]
		store := newFakeStore()

		packed, err := td.Pack(codec.Text("hello memo"), fd, store, nil)
		require.NoError(t, err)
		require.Equal(t, []byte("         1"), packed)

		got, err := td.Unpack(packed, fd, store, nil)
		require.NoError(t, err)
		require.True(t, got.Equal(codec.Text("hello memo")))
	})

	t.Run("binary block reference", func(t *testing.T) {
		reg := codec.VisualFoxProTypes()
		fd := field("NOTES", codec.MemoField, 4, 0)
		td := reg[codec.MemoField]
		store := newFakeStore()

		packed, err := td.Pack(codec.Text("vfp memo"), fd, store, nil)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 0, 0, 0}, packed)

		got, err := td.Unpack(packed, fd, store, nil)
		require.NoError(t, err)
		require.True(t, got.Equal(codec.Text("vfp memo")))
	})
}

func TestBinaryTypesRoundTrip(t *testing.T) {
	reg := codec.VisualFoxProTypes()

	t.Run("integer", func(t *testing.T) {
		fd := field("COUNT", codec.IntegerField, 4, 0)
		got := roundTrip(t, reg, fd, codec.Int(-123456))
		require.True(t, got.Equal(codec.Int(-123456)))

		td := reg[codec.IntegerField]
		_, err := td.Pack(codec.Int(1<<40), fd, nil, nil)
		var overflow *codec.OverflowError
		require.ErrorAs(t, err, &overflow)
	})

	t.Run("double", func(t *testing.T) {
		fd := field("RATIO", codec.DoubleField, 8, 0)
		got := roundTrip(t, reg, fd, codec.Float(3.14159265))
		require.True(t, got.Equal(codec.Float(3.14159265)))
	})

	t.Run("currency keeps four decimal places", func(t *testing.T) {
		fd := field("PRICE", codec.CurrencyField, 8, 0)
		got := roundTrip(t, reg, fd, codec.Float(19.99))
		require.InDelta(t, 19.99, got.Float(), 1e-9)
	})

	t.Run("datetime", func(t *testing.T) {
		fd := field("SEEN", codec.DateTimeField, 8, 0)
		when := time.Date(2024, 6, 15, 13, 45, 30, 0, time.UTC)
		got := roundTrip(t, reg, fd, codec.DateTime(when))
		require.True(t, got.Time().Equal(when))
	})

	t.Run("datetime before the duration horizon", func(t *testing.T) {
		fd := field("SEEN", codec.DateTimeField, 8, 0)
		when := time.Date(101, 1, 2, 3, 4, 5, 0, time.UTC)
		got := roundTrip(t, reg, fd, codec.DateTime(when))
		require.True(t, got.Time().Equal(when))
	})

	t.Run("all zero bytes decode to null", func(t *testing.T) {
		fd := field("SEEN", codec.DateTimeField, 8, 0)
		td := reg[codec.DateTimeField]
		got, err := td.Unpack(make([]byte, 8), fd, nil, nil)
		require.NoError(t, err)
		require.True(t, got.IsNull())
	})
}

func TestNullFlagsRejectDirectWrites(t *testing.T) {
	reg := codec.VisualFoxProTypes()
	fd := field("_NULLFLAGS", codec.NullFlagField, 1, 0)
	_, err := reg[codec.NullFlagField].Pack(codec.Bytes([]byte{0}), fd, nil, nil)
	require.Error(t, err)
}
