package eqlog

// compiledFilter holds the include/exclude kind sets used by parsing and watching.
type compiledFilter struct {
	include map[Kind]struct{}
	exclude map[Kind]struct{}
}

// newCompiledFilter creates a new compiledFilter from include and exclude slices.
// Returns nil if both slices are empty (no filtering needed).
func newCompiledFilter(include, exclude []Kind) *compiledFilter {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}

	f := &compiledFilter{}
	if len(include) > 0 {
		f.include = kindSet(include)
	}
	if len(exclude) > 0 {
		f.exclude = kindSet(exclude)
	}
	return f
}

func kindSet(kinds []Kind) map[Kind]struct{} {
	m := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		m[k] = struct{}{}
	}
	return m
}

// Allows returns true if the given kind passes the filter.
// If include is non-empty, only kinds in include are allowed.
// Kinds in exclude are always rejected (exclude takes precedence).
func (f *compiledFilter) Allows(k Kind) bool {
	if f == nil {
		return true
	}
	if len(f.include) > 0 {
		if _, ok := f.include[k]; !ok {
			return false
		}
	}
	if _, ok := f.exclude[k]; ok {
		return false
	}
	return true
}

// withInclude returns a copy of f with the include set replaced.
func (f *compiledFilter) withInclude(kinds []Kind) *compiledFilter {
	out := &compiledFilter{include: kindSet(kinds)}
	if f != nil {
		out.exclude = f.exclude
	}
	return out
}

// withExclude returns a copy of f with the exclude set replaced.
func (f *compiledFilter) withExclude(kinds []Kind) *compiledFilter {
	out := &compiledFilter{exclude: kindSet(kinds)}
	if f != nil {
		out.include = f.include
	}
	return out
}
