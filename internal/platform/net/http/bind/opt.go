package bind

import "encoding/json"

// Opt is an optional-with-presence field for PATCH bodies. A missing key
// leaves Set false, an explicit null sets Set with Null, any other value
// sets Set with Val populated
type Opt[T any] struct {
	Set  bool
	Null bool
	Val  T
}

// UnmarshalJSON records presence before decoding the value
func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Val)
}

// MarshalJSON renders the value, or null when cleared
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

// Ptr returns the value as a pointer, nil when absent or null
func (o Opt[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Val
	return &v
}
