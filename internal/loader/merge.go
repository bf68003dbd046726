package loader

// MergeItem combines a and b: two mappings merge recursively, two sequences
// concatenate, anything else resolves to b.
func MergeItem(a, b any) any {
	switch av := a.(type) {
	case *Map:
		if bv, ok := b.(*Map); ok {
			return MergeContent(av, bv)
		}
	case []any:
		if bv, ok := b.([]any); ok {
			out := make([]any, 0, len(av)+len(bv))
			out = append(out, cloneValue(av).([]any)...)
			out = append(out, cloneValue(bv).([]any)...)
			return out
		}
	}
	return cloneValue(b)
}

// MergeContent merges b into a copy of a. Keys only in a keep their
// position; keys new in b are appended in b's order.
func MergeContent(a, b *Map) *Map {
	out := a.Clone()
	if out == nil {
		out = NewMap()
	}
	for _, k := range b.Keys() {
		bv, _ := b.Get(k)
		if av, ok := out.Get(k); ok {
			out.Set(k, MergeItem(av, bv))
			continue
		}
		out.Set(k, cloneValue(bv))
	}
	return out
}
