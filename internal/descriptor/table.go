// Package descriptor implements the table mapping client-visible descriptors
// to the native handles they stand for.
package descriptor

import (
	"maps"
	"slices"
	"unsafe"
)

// Table is a bijection between descriptors (Key) and native handles.
//
// The forward (key -> handle) and reverse (handle -> key) indexes only change
// together, through Bind and Unbind, so no handle is ever bound to two keys.
//
// Keys are issued by Allocate from a monotonic counter and are never reused,
// even after Unbind. Binding a key directly, as done for reserved descriptors,
// advances the counter past it.
//
// The zero value is an empty table ready to use. Table is not goroutine-safe:
// callers serialize access.
type Table[Key ~int32 | ~int64, Handle comparable] struct {
	next Key
	// exhausted is set once the largest Key was issued or bound, as next
	// cannot advance past it.
	exhausted bool
	byKey     map[Key]Handle
	byHandle  map[Handle]Key
}

// maxKey returns the largest value of Key.
func maxKey[Key ~int32 | ~int64]() Key {
	var k Key
	return Key(uint64(1)<<(8*unsafe.Sizeof(k)-1) - 1)
}

// Len returns the number of bound descriptors.
func (t *Table[Key, Handle]) Len() int {
	return len(t.byKey)
}

// Allocate returns a key strictly greater than any key issued or bound before.
// It returns false if the key space is exhausted.
func (t *Table[Key, Handle]) Allocate() (Key, bool) {
	if t.exhausted {
		return 0, false
	}
	k := t.next
	t.advancePast(k)
	return k, true
}

// Bind associates key with handle. It returns false, leaving the table
// unchanged, if key is negative or already bound, or if handle is already
// bound to another key.
func (t *Table[Key, Handle]) Bind(key Key, handle Handle) bool {
	if key < 0 {
		return false
	}
	if _, ok := t.byKey[key]; ok {
		return false
	}
	if _, ok := t.byHandle[handle]; ok {
		return false
	}
	if t.byKey == nil {
		t.byKey = map[Key]Handle{}
		t.byHandle = map[Handle]Key{}
	}
	t.byKey[key] = handle
	t.byHandle[handle] = key
	if key >= t.next && !t.exhausted {
		t.advancePast(key)
	}
	return true
}

// advancePast moves the counter to the key after k, or marks the table
// exhausted when k is the largest Key.
func (t *Table[Key, Handle]) advancePast(k Key) {
	if k == maxKey[Key]() {
		t.next, t.exhausted = k, true
		return
	}
	t.next = k + 1
}

// Resolve returns the handle bound to key.
func (t *Table[Key, Handle]) Resolve(key Key) (handle Handle, ok bool) {
	handle, ok = t.byKey[key]
	return
}

// Unbind removes key and its handle. Unbinding an unbound key is a no-op.
func (t *Table[Key, Handle]) Unbind(key Key) {
	if handle, ok := t.byKey[key]; ok {
		delete(t.byKey, key)
		delete(t.byHandle, handle)
	}
}

// Range calls f for each bound key in ascending order, stopping early if f
// returns false.
func (t *Table[Key, Handle]) Range(f func(Key, Handle) bool) {
	for _, k := range slices.Sorted(maps.Keys(t.byKey)) {
		if !f(k, t.byKey[k]) {
			return
		}
	}
}

// Reset unbinds every key. The counter is kept, so keys issued before Reset
// are still never reissued.
func (t *Table[Key, Handle]) Reset() {
	clear(t.byKey)
	clear(t.byHandle)
}
