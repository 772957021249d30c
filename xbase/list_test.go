package xbase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbasekit/xbase/xbase"
)

func TestListDeduplicatesByKey(t *testing.T) {
	table := tempTable(t, xbase.DBase3, "CITY C(10)")
	for _, city := range []string{"Berlin", "Athens", "Berlin", "Oslo"} {
		appendRow(t, table, xbase.Text(city))
	}

	list, err := table.List(xbase.FieldKey("CITY"))
	require.NoError(t, err)
	require.Equal(t, 3, list.Len(), "second Berlin is rejected")

	// explicit Add reports the rejection
	rec, err := table.At(2)
	require.NoError(t, err)
	added, err := list.Add(rec, xbase.Key{xbase.Text("Berlin")})
	require.NoError(t, err)
	require.False(t, added)
}

func TestListNavigation(t *testing.T) {
	table := tempTable(t, xbase.DBase3, "NAME C(10)")
	for _, name := range []string{"a", "b", "c"} {
		appendRow(t, table, xbase.Text(name))
	}
	list, err := table.List(xbase.FieldKey("NAME"))
	require.NoError(t, err)

	rec, err := list.Top()
	require.NoError(t, err)
	require.Equal(t, "a", fieldValue(t, rec, "NAME").Text())

	rec, err = list.Skip(2)
	require.NoError(t, err)
	require.Equal(t, "c", fieldValue(t, rec, "NAME").Text())

	_, err = list.Skip(1)
	require.ErrorIs(t, err, xbase.ErrNotFound)

	rec, err = list.Bottom()
	require.NoError(t, err)
	require.Equal(t, "c", fieldValue(t, rec, "NAME").Text())

	rec, err = list.Goto(1)
	require.NoError(t, err)
	require.Equal(t, "b", fieldValue(t, rec, "NAME").Text())

	cur, err := list.Current()
	require.NoError(t, err)
	require.Same(t, rec, cur)

	key, err := list.Key(1)
	require.NoError(t, err)
	require.Zero(t, xbase.CompareKeys(key, xbase.Key{xbase.Text("b")}))
}

func TestListSpansTables(t *testing.T) {
	first := tempTable(t, xbase.DBase3, "NAME C(10)")
	second := tempTable(t, xbase.DBase3, "NAME C(10)")
	appendRow(t, first, xbase.Text("a"))
	appendRow(t, second, xbase.Text("b"))

	list := xbase.NewList()
	for _, table := range []*xbase.Table{first, second} {
		rec, err := table.At(0)
		require.NoError(t, err)
		name := fieldValue(t, rec, "NAME")
		added, err := list.Add(rec, xbase.Key{name})
		require.NoError(t, err)
		require.True(t, added)
	}
	require.Equal(t, 2, list.Len())

	rec, err := list.Bottom()
	require.NoError(t, err)
	require.Equal(t, "b", fieldValue(t, rec, "NAME").Text())
}

func TestListStaleAfterPack(t *testing.T) {
	table := tempTable(t, xbase.DBase3, "NAME C(10)")
	for _, name := range []string{"a", "b", "c"} {
		appendRow(t, table, xbase.Text(name))
	}
	list, err := table.List(xbase.FieldKey("NAME"))
	require.NoError(t, err)

	rec, err := table.At(0)
	require.NoError(t, err)
	require.NoError(t, rec.Delete())
	require.NoError(t, table.Pack())

	var stale *xbase.StaleError
	_, err = list.Top()
	require.ErrorAs(t, err, &stale)
	_, err = list.Key(0)
	require.ErrorAs(t, err, &stale)

	fresh, err := table.At(0)
	require.NoError(t, err)
	_, err = list.Add(fresh, xbase.Key{xbase.Text("b")})
	require.ErrorAs(t, err, &stale)
}

func TestListUnionAndDifference(t *testing.T) {
	table := tempTable(t, xbase.DBase3, "NAME C(10)")
	for _, name := range []string{"a", "b", "c", "d"} {
		appendRow(t, table, xbase.Text(name))
	}

	build := func(names ...string) *xbase.List {
		t.Helper()
		list := xbase.NewList()
		for recno := 0; recno < table.Len(); recno++ {
			rec, err := table.At(recno)
			require.NoError(t, err)
			name := fieldValue(t, rec, "NAME")
			for _, want := range names {
				if name.Text() == want {
					_, err = list.Add(rec, xbase.Key{name})
					require.NoError(t, err)
				}
			}
		}
		return list
	}
	keyNames := func(list *xbase.List) []string {
		t.Helper()
		var out []string
		for i := 0; i < list.Len(); i++ {
			key, err := list.Key(i)
			require.NoError(t, err)
			out = append(out, key[0].Text())
		}
		return out
	}

	ab := build("a", "b")
	bc := build("b", "c")

	union, err := ab.Union(bc)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keyNames(union))

	diff, err := ab.Difference(bc)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, keyNames(diff))
}

func TestRelationTargets(t *testing.T) {
	orders := tempTable(t, xbase.DBase3, "ORDERNO N(5,0); CUSTID C(4)")
	customers := tempTable(t, xbase.DBase3, "CUSTID C(4); NAME C(10)")

	appendRow(t, customers, xbase.Text("C001"), xbase.Text("Alice"))
	appendRow(t, customers, xbase.Text("C002"), xbase.Text("Bob"))
	appendRow(t, orders, xbase.Int(1), xbase.Text("C002"))
	appendRow(t, orders, xbase.Int(2), xbase.Text("C002"))
	appendRow(t, orders, xbase.Int(3), xbase.Text("C404"))

	rel, err := xbase.NewRelation(orders, "CUSTID", customers, "CUSTID")
	require.NoError(t, err)

	rec, err := orders.At(0)
	require.NoError(t, err)
	targets, err := rel.Targets(rec)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "Bob", fieldValue(t, targets[0], "NAME").Text())

	// dangling foreign key
	rec, err = orders.At(2)
	require.NoError(t, err)
	_, err = rel.Targets(rec)
	require.ErrorIs(t, err, xbase.ErrNotFound)

	_, err = xbase.NewRelation(orders, "NOSUCH", customers, "CUSTID")
	var missing *xbase.FieldMissingError
	require.ErrorAs(t, err, &missing)
}

func TestRelationCardinality(t *testing.T) {
	orders := tempTable(t, xbase.DBase3, "ORDERNO N(5,0); CUSTID C(4)")
	customers := tempTable(t, xbase.DBase3, "CUSTID C(4); NAME C(10)")

	appendRow(t, customers, xbase.Text("C001"), xbase.Text("Alice"))
	appendRow(t, customers, xbase.Text("C002"), xbase.Text("Bob"))
	appendRow(t, orders, xbase.Int(1), xbase.Text("C001"))
	appendRow(t, orders, xbase.Int(2), xbase.Text("C001"))
	appendRow(t, orders, xbase.Int(3), xbase.Text("C002"))

	rel, err := xbase.NewRelation(orders, "CUSTID", customers, "CUSTID")
	require.NoError(t, err)

	srcSide, dstSide, err := rel.Cardinality()
	require.NoError(t, err)
	require.Equal(t, "many", srcSide)
	require.Equal(t, "one", dstSide)
}
