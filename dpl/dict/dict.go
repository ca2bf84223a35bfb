// Package dict implements the small data containers the request builder,
// reply reader, and signing packages are built on: a case-insensitive
// header dictionary, a growable byte buffer, and a bounded vector of
// byte-range pairs.
package dict

import "strings"

// entry is one dictionary slot. Name keeps the case it was added with;
// lookups normalize to lower-case.
type entry struct {
	name  string
	value string
}

// Dict is a case-insensitive map from header name to string value.
// Keys preserve the case they were added with; lookups, and the key
// sort used by the signing packages, are case-insensitive. Insertion
// order is preserved so that callers who want deterministic output
// (e.g. serializing a request) don't depend on Go's map iteration.
type Dict struct {
	order   []string // lower-cased keys, insertion order
	entries map[string]entry
}

// New returns an empty dictionary.
func New() *Dict {
	return &Dict{entries: make(map[string]entry, 8)}
}

// Clone returns a deep copy.
func (d *Dict) Clone() *Dict {
	c := New()
	for _, k := range d.order {
		e := d.entries[k]
		c.Set(e.name, e.value)
	}
	return c
}

// Set adds or overwrites name/value. The case of name on first insertion
// is what Keys() and Range() report back.
func (d *Dict) Set(name, value string) {
	lk := strings.ToLower(name)
	if e, ok := d.entries[lk]; ok {
		d.entries[lk] = entry{name: e.name, value: value}
		return
	}
	d.order = append(d.order, lk)
	d.entries[lk] = entry{name: name, value: value}
}

// SetIfAbsent sets name/value only when name is not already present;
// returns true if it set the value.
func (d *Dict) SetIfAbsent(name, value string) bool {
	lk := strings.ToLower(name)
	if _, ok := d.entries[lk]; ok {
		return false
	}
	d.Set(name, value)
	return true
}

// Get looks up name case-insensitively.
func (d *Dict) Get(name string) (string, bool) {
	e, ok := d.entries[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return e.value, true
}

// Has reports whether name is present, case-insensitively.
func (d *Dict) Has(name string) bool {
	_, ok := d.entries[strings.ToLower(name)]
	return ok
}

// Del removes name, case-insensitively.
func (d *Dict) Del(name string) {
	lk := strings.ToLower(name)
	if _, ok := d.entries[lk]; !ok {
		return
	}
	delete(d.entries, lk)
	for i, k := range d.order {
		if k == lk {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.order) }

// Keys returns header names in insertion order, in their original case.
func (d *Dict) Keys() []string {
	out := make([]string, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.entries[k].name)
	}
	return out
}

// Range calls f for every entry in insertion order.
func (d *Dict) Range(f func(name, value string)) {
	for _, k := range d.order {
		e := d.entries[k]
		f(e.name, e.value)
	}
}

// Merge copies every entry of other into d, overwriting on conflict.
func (d *Dict) Merge(other *Dict) {
	if other == nil {
		return
	}
	other.Range(d.Set)
}
