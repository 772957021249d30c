package xbase

// Relation binds a (source table, source field) to a (target table, target
// field). The target-side index is built lazily on first lookup.
type Relation struct {
	src      *Table
	srcField string
	dst      *Table
	dstField string

	idx *Index
}

// NewRelation validates both fields and returns the relation without
// building anything yet.
func NewRelation(src *Table, srcField string, dst *Table, dstField string) (*Relation, error) {
	sf, err := src.layout.field(srcField)
	if err != nil {
		return nil, err
	}
	df, err := dst.layout.field(dstField)
	if err != nil {
		return nil, err
	}
	return &Relation{src: src, srcField: sf.Name, dst: dst, dstField: df.Name}, nil
}

func (rel *Relation) index() (*Index, error) {
	if rel.idx == nil {
		idx, err := rel.dst.NewIndex(FieldKey(rel.dstField))
		if err != nil {
			return nil, err
		}
		rel.idx = idx
	}
	return rel.idx, nil
}

// Targets returns every target record whose target field equals the source
// record's source field value.
func (rel *Relation) Targets(r *Record) ([]*Record, error) {
	v, err := r.Value(rel.srcField)
	if err != nil {
		return nil, err
	}
	idx, err := rel.index()
	if err != nil {
		return nil, err
	}
	key := Key{v}
	pos, found, err := idx.Search(key, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	var out []*Record
	for ; pos < idx.Len() && CompareKeys(idx.keys[pos], key) == 0; pos++ {
		rec, err := idx.Record(pos)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Cardinality classifies each side of the relation as "one" or "many": a
// side is "many" when it has fewer distinct key values than live records.
func (rel *Relation) Cardinality() (srcSide, dstSide string, err error) {
	srcSide, err = sideCardinality(rel.src, rel.srcField)
	if err != nil {
		return "", "", err
	}
	dstSide, err = sideCardinality(rel.dst, rel.dstField)
	if err != nil {
		return "", "", err
	}
	return srcSide, dstSide, nil
}

func sideCardinality(t *Table, field string) (string, error) {
	distinct := make(map[string]struct{})
	total := 0
	err := t.Scan(func(r *Record) error {
		v, err := r.Value(field)
		if err != nil {
			return err
		}
		distinct[fingerprint(Key{v})] = struct{}{}
		total++
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(distinct) < total {
		return "many", nil
	}
	return "one", nil
}
