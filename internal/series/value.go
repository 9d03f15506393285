package series

import "strconv"

// Value is one point of a series. The zero Value is "no data", which is
// distinct from a present 0.
type Value struct {
	v  float64
	ok bool
}

// Of returns a present value.
func Of(v float64) Value {
	return Value{v: v, ok: true}
}

// NoData returns the "no data" marker.
func NoData() Value {
	return Value{}
}

// FromPtr converts an optional column value; nil is "no data".
func FromPtr(p *float64) Value {
	if p == nil {
		return NoData()
	}
	return Of(*p)
}

// Get returns the value and whether it is present.
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// IsNoData reports whether v carries no data.
func (v Value) IsNoData() bool {
	return !v.ok
}

// Ptr returns a pointer to the value, or nil when there is no data.
func (v Value) Ptr() *float64 {
	if !v.ok {
		return nil
	}
	f := v.v
	return &f
}

// String formats the value for reports.
func (v Value) String() string {
	if !v.ok {
		return "no data"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}
