// Package matrix builds the dense user × place interaction matrix that the
// iterative scorers operate on.
package matrix

// NotFound is returned by Index.Position for unknown keys.
const NotFound = -1

// Index maps sparse keys to dense positions in enumeration order.
// The first occurrence of a key wins.
type Index struct {
	positions map[string]int
	keys      []string
}

// NewIndex creates an Index over keys.
func NewIndex(keys []string) *Index {
	idx := &Index{
		positions: make(map[string]int, len(keys)),
		keys:      make([]string, 0, len(keys)),
	}
	for _, k := range keys {
		idx.add(k)
	}
	return idx
}

func (idx *Index) add(key string) {
	if _, ok := idx.positions[key]; ok {
		return
	}
	idx.positions[key] = len(idx.keys)
	idx.keys = append(idx.keys, key)
}

// Len returns the number of indexed keys.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.keys)
}

// Position returns the dense position of key, or NotFound.
func (idx *Index) Position(key string) int {
	if pos, ok := idx.positions[key]; ok {
		return pos
	}
	return NotFound
}

// Key returns the key at a dense position.
func (idx *Index) Key(pos int) string {
	return idx.keys[pos]
}

// Keys returns all keys in enumeration order.
func (idx *Index) Keys() []string {
	return idx.keys
}
