// Package rating holds the nullable rating value used across the matrix and
// the scale a rating is checked against.
package rating

import (
	"fmt"
	"math"
)

// Default rating scale bounds, used when no subskill scale is known.
const (
	DefaultMin = 1
	DefaultMax = 5
)

// Value is a nullable rating. A nil Value means "unset".
type Value = *float64

// Of returns a Value holding v.
func Of(v float64) Value {
	return &v
}

// Finite reports the numeric value of v when it is set and finite.
// NaN and infinities are treated as absent, never as zero.
func Finite(v Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// Coerce is Finite for a plain float.
func Coerce(v float64) (float64, bool) {
	return Finite(&v)
}

// Equal reports whether a and b are both unset or hold the same number.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Clone returns an independent copy of v.
func Clone(v Value) Value {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Mean averages the finite values; ok is false when none are finite.
func Mean(values []float64) (mean float64, ok bool) {
	var sum float64
	n := 0
	for _, v := range values {
		f, finite := Coerce(v)
		if !finite {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Scale is an inclusive integer rating range.
type Scale struct {
	Min int
	Max int
}

// DefaultScale is the 1..5 scale.
var DefaultScale = Scale{Min: DefaultMin, Max: DefaultMax}

// Known reports whether the scale carries usable bounds.
func (s Scale) Known() bool {
	return s.Max > s.Min
}

// OrDefault returns s when it is known and DefaultScale otherwise.
func (s Scale) OrDefault() Scale {
	if s.Known() {
		return s
	}
	return DefaultScale
}

// Widen returns the smallest scale covering both s and o.
func (s Scale) Widen(o Scale) Scale {
	if !s.Known() {
		return o
	}
	if !o.Known() {
		return s
	}
	return Scale{Min: min(s.Min, o.Min), Max: max(s.Max, o.Max)}
}

// Validate checks v against the scale. Unset values are always valid.
func (s Scale) Validate(v Value) error {
	if v == nil {
		return nil
	}
	f, ok := Finite(v)
	if !ok {
		return ErrNotFinite
	}
	sc := s.OrDefault()
	if f < float64(sc.Min) || f > float64(sc.Max) {
		return fmt.Errorf("%w: %g not in [%d,%d]", ErrOutOfRange, f, sc.Min, sc.Max)
	}
	return nil
}
