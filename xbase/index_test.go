package xbase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbasekit/xbase/xbase"
)

func peopleTable(t *testing.T) *xbase.Table {
	t.Helper()

	table := tempTable(t, xbase.DBase3, "NAME C(10); CITY C(10); AGE N(3,0)")
	rows := []struct {
		name, city string
		age        int64
	}{
		{"Carol", "Berlin", 45},
		{"Alice", "Athens", 30},
		{"Bob", "Berlin", 17},
		{"Dave", "Athens", 62},
	}
	for _, r := range rows {
		appendRow(t, table, xbase.Text(r.name), xbase.Text(r.city), xbase.Int(r.age))
	}
	return table
}

func TestIndexOrdering(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("NAME"))
	require.NoError(t, err)

	recnos, err := idx.Recnos()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 0, 3}, recnos)

	// for k1 < k2, search(k1) < search(k2)
	posAlice, foundAlice, err := idx.Search(xbase.Key{xbase.Text("Alice")}, false)
	require.NoError(t, err)
	posDave, foundDave, err := idx.Search(xbase.Key{xbase.Text("Dave")}, false)
	require.NoError(t, err)
	require.True(t, foundAlice)
	require.True(t, foundDave)
	require.Less(t, posAlice, posDave)
}

func TestIndexSearchNearest(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("NAME"))
	require.NoError(t, err)

	// nearest mode never fails: a missing key reports its insertion point
	pos, found, err := idx.Search(xbase.Key{xbase.Text("Brenda")}, false)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, 2, pos, "between Bob and Carol")

	pos, found, err = idx.Search(xbase.Key{xbase.Text("Zed")}, false)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, idx.Len(), pos)
}

func TestIndexCompoundAndPartialKeys(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("CITY", "NAME"))
	require.NoError(t, err)

	// compound ordering: city first, then name
	recs, err := idx.FindPrefix(xbase.Key{xbase.Text("Berlin")})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "Bob", fieldValue(t, recs[0], "NAME").Text())
	require.Equal(t, "Carol", fieldValue(t, recs[1], "NAME").Text())

	// the last component matches as a string prefix
	recs, err = idx.FindPrefix(xbase.Key{xbase.Text("Berlin"), xbase.Text("Ca")})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Carol", fieldValue(t, recs[0], "NAME").Text())

	_, err = idx.FindPrefix(xbase.Key{xbase.Text("Oslo")})
	require.ErrorIs(t, err, xbase.ErrNotFound)
}

func TestIndexBetween(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("AGE"))
	require.NoError(t, err)

	// [18, 50): Alice(30) and Carol(45)
	recnos, err := idx.Between(xbase.Key{xbase.Int(18)}, xbase.Key{xbase.Int(50)})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, recnos)
}

func TestIndexSkipSentinel(t *testing.T) {
	table := peopleTable(t)
	adults := func(r *xbase.Record) (xbase.Key, error) {
		age, err := r.Value("AGE")
		if err != nil {
			return nil, err
		}
		if age.Int() < 18 {
			return nil, xbase.ErrSkipRecord
		}
		return xbase.Key{age}, nil
	}
	idx, err := table.NewIndex(adults)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len(), "Bob is skipped")

	// crossing the threshold via commit re-keys the record in
	rec, err := table.At(2)
	require.NoError(t, err)
	require.NoError(t, rec.Update(func(f *xbase.Flux) error {
		return f.Set("AGE", xbase.Int(18))
	}))
	require.Equal(t, 4, idx.Len())

	// and back out again
	require.NoError(t, rec.Update(func(f *xbase.Flux) error {
		return f.Set("AGE", xbase.Int(17))
	}))
	require.Equal(t, 3, idx.Len())
}

func TestIndexReKeyOnCommit(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("NAME"))
	require.NoError(t, err)

	rec, err := table.At(1) // Alice
	require.NoError(t, err)
	require.NoError(t, rec.Update(func(f *xbase.Flux) error {
		return f.Set("NAME", xbase.Text("Zoe"))
	}))

	_, found, err := idx.Search(xbase.Key{xbase.Text("Alice")}, false)
	require.NoError(t, err)
	require.False(t, found)
	got, err := idx.Find(xbase.Key{xbase.Text("Zoe")})
	require.NoError(t, err)
	require.Equal(t, 1, got.Recno())
}

func TestIndexSurvivesPack(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("NAME"))
	require.NoError(t, err)

	rec, err := table.At(0) // Carol
	require.NoError(t, err)
	require.NoError(t, rec.Delete())
	require.NoError(t, table.Pack())

	// same logical matches by key, through new record numbers
	_, found, err := idx.Search(xbase.Key{xbase.Text("Carol")}, false)
	require.NoError(t, err)
	require.False(t, found)
	for _, name := range []string{"Alice", "Bob", "Dave"} {
		got, err := idx.Find(xbase.Key{xbase.Text(name)})
		require.NoError(t, err)
		require.Equal(t, name, fieldValue(t, got, "NAME").Text())
	}
	require.Equal(t, 3, idx.Len())
}

func TestIndexDuplicateKeysKeepInsertOrder(t *testing.T) {
	table := tempTable(t, xbase.DBase3, "NAME C(10)")
	for _, name := range []string{"same", "same", "same"} {
		appendRow(t, table, xbase.Text(name))
	}
	idx, err := table.NewIndex(xbase.FieldKey("NAME"))
	require.NoError(t, err)
	recnos, err := idx.Recnos()
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, recnos)
}

func TestIndexOnClosedTable(t *testing.T) {
	table := peopleTable(t)
	idx, err := table.NewIndex(xbase.FieldKey("NAME"))
	require.NoError(t, err)
	require.NoError(t, table.Close())

	_, err = idx.Record(0)
	require.ErrorIs(t, err, xbase.ErrClosed)
	require.ErrorIs(t, idx.Reindex(), xbase.ErrClosed)

	// navigation and snapshots refuse to answer from the stale projection
	_, _, err = idx.Search(xbase.Key{xbase.Text("Alice")}, false)
	require.ErrorIs(t, err, xbase.ErrClosed)
	_, err = idx.Find(xbase.Key{xbase.Text("Alice")})
	require.ErrorIs(t, err, xbase.ErrClosed)
	_, err = idx.Between(xbase.Key{xbase.Text("A")}, xbase.Key{xbase.Text("Z")})
	require.ErrorIs(t, err, xbase.ErrClosed)
	_, err = idx.Recnos()
	require.ErrorIs(t, err, xbase.ErrClosed)
	_, err = idx.Keys()
	require.ErrorIs(t, err, xbase.ErrClosed)
}

func TestCompareKeys(t *testing.T) {
	less := func(a, b xbase.Key) {
		t.Helper()
		require.Negative(t, xbase.CompareKeys(a, b))
		require.Positive(t, xbase.CompareKeys(b, a))
	}
	less(xbase.Key{xbase.Text("a")}, xbase.Key{xbase.Text("b")})
	less(xbase.Key{xbase.Int(1)}, xbase.Key{xbase.Float(1.5)})
	less(xbase.Key{xbase.Null}, xbase.Key{xbase.Int(-100)})
	less(xbase.Key{xbase.Text("a")}, xbase.Key{xbase.Text("a"), xbase.Int(1)})
	require.Zero(t, xbase.CompareKeys(
		xbase.Key{xbase.Int(2)},
		xbase.Key{xbase.Float(2)},
	))
}
