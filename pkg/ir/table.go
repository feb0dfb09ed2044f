package ir

import "iter"

// Table is a dense, id-indexed arena. Removed slots stay vacant so ids are
// never reused.
type Table[K ~uint32, V any] struct {
	items   []V
	present []bool
	count   int
}

// NewTable returns an empty table.
func NewTable[K ~uint32, V any]() *Table[K, V] {
	return &Table[K, V]{}
}

// Insert stores v at id, growing the table as needed.
func (t *Table[K, V]) Insert(id K, v V) {
	for int(id) >= len(t.items) {
		var zero V
		t.items = append(t.items, zero)
		t.present = append(t.present, false)
	}
	if !t.present[id] {
		t.count++
	}
	t.items[id] = v
	t.present[id] = true
}

// Get returns the value at id.
func (t *Table[K, V]) Get(id K) (V, bool) {
	if int(id) >= len(t.items) || !t.present[id] {
		var zero V
		return zero, false
	}
	return t.items[id], true
}

// Remove vacates id.
func (t *Table[K, V]) Remove(id K) {
	if int(id) < len(t.items) && t.present[id] {
		var zero V
		t.items[id] = zero
		t.present[id] = false
		t.count--
	}
}

// Len returns the number of occupied slots.
func (t *Table[K, V]) Len() int { return t.count }

// All iterates occupied slots in ascending id order.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, ok := range t.present {
			if ok && !yield(K(i), t.items[i]) {
				return
			}
		}
	}
}

// IDs returns the occupied ids in ascending order.
func (t *Table[K, V]) IDs() []K {
	ids := make([]K, 0, t.count)
	for id := range t.All() {
		ids = append(ids, id)
	}
	return ids
}

// Retain removes every entry for which keep returns false.
func (t *Table[K, V]) Retain(keep func(K, V) bool) {
	for id, v := range t.All() {
		if !keep(id, v) {
			t.Remove(id)
		}
	}
}

// NextID returns one past the highest id ever inserted.
func (t *Table[K, V]) NextID() K {
	return K(len(t.items))
}
