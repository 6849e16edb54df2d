package model

import "bytes"

// TXTPair is a single key/value entry within a service's TXT record.
// HasValue distinguishes a key-only entry ("key") from one with an empty
// value ("key=").
type TXTPair struct {
	Key      string
	Value    []byte
	HasValue bool
}

// TXTPairs is an ordered list of TXT key/value pairs, per spec §3: "TXT
// pairs are an ordered list of {key, value_bytes}; value may be absent
// (key-only entry)".
type TXTPairs []TXTPair

// Get returns the value (and whether it is present) of the first entry
// with the given key, and whether the key exists at all.
func (t TXTPairs) Get(key string) (value []byte, hasValue bool, ok bool) {
	for _, p := range t {
		if p.Key == key {
			return p.Value, p.HasValue, true
		}
	}
	return nil, false, false
}

// Equal reports whether t and u are the same TXT set, per spec §4.3's
// change-detection rule: "Two TXT sets are equal iff they have the same
// count and each key maps to a byte-equal value (keys are unique within a
// set)."
func (t TXTPairs) Equal(u TXTPairs) bool {
	if len(t) != len(u) {
		return false
	}

	index := make(map[string]TXTPair, len(u))
	for _, p := range u {
		index[p.Key] = p
	}

	for _, p := range t {
		other, ok := index[p.Key]
		if !ok {
			return false
		}
		if p.HasValue != other.HasValue {
			return false
		}
		if p.HasValue && !bytes.Equal(p.Value, other.Value) {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of t.
func (t TXTPairs) Clone() TXTPairs {
	if t == nil {
		return nil
	}

	out := make(TXTPairs, len(t))
	for i, p := range t {
		if p.Value != nil {
			v := make([]byte, len(p.Value))
			copy(v, p.Value)
			p.Value = v
		}
		out[i] = p
	}
	return out
}
