package timing

import (
	"encoding/json"
	"fmt"
	"math"
)

// MultiplierLimit bounds the magnitude of a duration multiplier. A finite
// duration keeps |multiplier| below 1000^5; coarsening restores the bound
// after arithmetic, and values that cannot be coarsened collapse to infinity.
const MultiplierLimit = 1e15

// A Duration is a time difference expressed as an integral multiplier at a
// base-1000 scale. A fixed duration locks its precision: arithmetic preserves
// the scale exactly and mixing two fixed durations of different precisions is
// rejected. An unfixed duration lets arithmetic coarsen the scale to avoid
// multiplier overflow, or refine it to absorb fractional parts.
type Duration struct {
	m     float64
	p     Scale
	fixed bool
}

// Infinity is the duration used to mean "never".
var Infinity = Duration{m: math.Inf(1), p: Base}

// MakeDuration returns an unfixed duration of m units at scale p. The
// multiplier is rounded to the nearest integer, ties away from zero, and
// coarsened if it exceeds the multiplier limit.
func MakeDuration(m float64, p Scale) Duration {
	return normalize(math.Round(m), p, false)
}

// MakeFixedDuration returns a duration locked to scale p. A multiplier beyond
// the limit collapses to infinity since a fixed duration cannot coarsen.
func MakeFixedDuration(m float64, p Scale) Duration {
	return normalize(math.Round(m), p, true)
}

// FromSeconds converts a decimal number of seconds into an unfixed duration,
// refining the scale below Base while a fractional part remains.
func FromSeconds(v float64) Duration {
	if math.IsNaN(v) {
		panic(&ArithmeticError{Op: "FromSeconds"})
	}

	if math.IsInf(v, 0) {
		return Duration{m: v, p: Base}
	}

	m, p := refine(v, Base)

	return normalize(math.Round(m), p, false)
}

// Inf returns the positive infinite duration at scale p.
func Inf(p Scale) Duration {
	return Duration{m: math.Inf(1), p: p}
}

func normalize(m float64, p Scale, fixed bool) Duration {
	if math.IsNaN(m) {
		panic(&ArithmeticError{Op: "normalize"})
	}

	if fixed {
		if math.Abs(m) >= MultiplierLimit {
			if math.Signbit(m) {
				m = math.Inf(-1)
			} else {
				m = math.Inf(1)
			}
		}

		return Duration{m: m, p: p, fixed: true}
	}

	for !math.IsInf(m, 0) && math.Abs(m) >= MultiplierLimit {
		m /= 1000
		p++
	}

	return Duration{m: m, p: p}
}

// refine lowers the scale while the multiplier has a fractional part and the
// refined multiplier stays within range. A multiplier within floating-point
// dust of an integer snaps to it, so scaling down and back up preserves the
// quantity exactly.
func refine(m float64, p Scale) (float64, Scale) {
	for {
		r := math.Round(m)
		if math.Abs(m-r) <= 1e-9*math.Max(1, math.Abs(m)) {
			return r, p
		}

		if math.Abs(m*1000) >= MultiplierLimit {
			return m, p
		}

		m *= 1000
		p--
	}
}

// Multiplier returns the multiplier of the duration.
func (d Duration) Multiplier() float64 { return d.m }

// Precision returns the scale of the duration.
func (d Duration) Precision() Scale { return d.p }

// Fixed reports whether the precision of the duration is locked.
func (d Duration) Fixed() bool { return d.fixed }

// Finite reports whether the duration is finite.
func (d Duration) Finite() bool { return !math.IsInf(d.m, 0) }

// Infinite reports whether the duration is infinite.
func (d Duration) Infinite() bool { return math.IsInf(d.m, 0) }

// IsZero reports whether the duration is exactly zero.
func (d Duration) IsZero() bool { return d.m == 0 }

// Seconds returns the duration as a floating-point number of seconds.
func (d Duration) Seconds() float64 { return d.m * d.p.Factor() }

// Fix returns a copy of the duration with its precision locked.
func (d Duration) Fix() Duration {
	d.fixed = true
	return d
}

// Unfix returns a copy of the duration with its precision unlocked.
func (d Duration) Unfix() Duration {
	d.fixed = false
	return d
}

// Neg returns the negated duration.
func (d Duration) Neg() Duration {
	d.m = -d.m
	return d
}

// Rescale converts the duration to scale p. Refining is exact; coarsening
// rounds the multiplier to the nearest integer, ties away from zero.
// Infinities keep their scale untouched except for the reported precision.
func (d Duration) Rescale(p Scale) Duration {
	if d.p == p || d.Infinite() {
		d.p = p
		return d
	}

	m := d.m * math.Pow(1000, float64(d.p-p))
	if p > d.p {
		m = math.Round(m)
	}

	return normalize(m, p, d.fixed)
}

// Add returns d + o. If both operands are fixed their precisions must match.
// If one operand is fixed, the result is aligned to the fixed precision.
// Otherwise the sum is computed at the finer precision and coarsened until
// the multiplier is in range. The result is fixed iff either operand is.
func (d Duration) Add(o Duration) Duration {
	if d.Infinite() || o.Infinite() {
		return addInfinite(d, o)
	}

	switch {
	case d.fixed && o.fixed:
		if d.p != o.p {
			panic(&BadSynchronisationError{A: d, B: o})
		}

		return normalize(d.m+o.m, d.p, true)

	case d.fixed:
		return normalize(d.m+o.Rescale(d.p).m, d.p, true)

	case o.fixed:
		return normalize(d.Rescale(o.p).m+o.m, o.p, true)

	default:
		p := d.p
		if o.p < p {
			p = o.p
		}

		return normalize(d.Rescale(p).m+o.Rescale(p).m, p, false)
	}
}

// Sub returns d - o with the same alignment rules as Add.
func (d Duration) Sub(o Duration) Duration {
	return d.Add(o.Neg())
}

func addInfinite(d, o Duration) Duration {
	if d.Infinite() && o.Infinite() {
		if math.Signbit(d.m) != math.Signbit(o.m) {
			panic(&ArithmeticError{Op: "Add"})
		}

		return Duration{m: d.m, p: d.p, fixed: d.fixed || o.fixed}
	}

	if d.Infinite() {
		return Duration{m: d.m, p: d.p, fixed: d.fixed || o.fixed}
	}

	return Duration{m: o.m, p: o.p, fixed: d.fixed || o.fixed}
}

// Mul returns the duration scaled by n. A fixed duration rounds the
// multiplier at its locked precision. An unfixed duration refines its
// precision while a fractional part remains, and coarsens on overflow.
func (d Duration) Mul(n float64) Duration {
	if math.IsNaN(n) {
		panic(&ArithmeticError{Op: "Mul"})
	}

	m := d.m * n
	if math.IsNaN(m) {
		panic(&ArithmeticError{Op: "Mul"})
	}

	if d.Infinite() || math.IsInf(m, 0) {
		return Duration{m: m, p: d.p, fixed: d.fixed}
	}

	if d.fixed {
		return normalize(math.Round(m), d.p, true)
	}

	m, p := refine(m, d.p)

	return normalize(m, p, false)
}

// Div returns the duration divided by scalar n, the mirror of Mul.
func (d Duration) Div(n float64) Duration {
	if math.IsNaN(n) {
		panic(&ArithmeticError{Op: "Div"})
	}

	m := d.m / n
	if math.IsNaN(m) {
		panic(&ArithmeticError{Op: "Div"})
	}

	if d.Infinite() || math.IsInf(m, 0) {
		return Duration{m: m, p: d.p, fixed: d.fixed}
	}

	if d.fixed {
		return normalize(math.Round(m), d.p, true)
	}

	m, p := refine(m, d.p)

	return normalize(m, p, false)
}

// Ratio returns the pure floating-point ratio d / o.
func (d Duration) Ratio(o Duration) float64 {
	return (d.m / o.m) * math.Pow(1000, float64(d.p-o.p))
}

// Cmp compares the numeric quantities of two durations modulo precision.
// Two durations are equal under Cmp when rescaling one to the other's
// precision matches, e.g. 2500ms and 2.5s.
func (d Duration) Cmp(o Duration) int {
	if d.Infinite() || o.Infinite() {
		return cmpFloat(boundless(d), boundless(o))
	}

	p := d.p
	if o.p < p {
		p = o.p
	}

	a := d.m * math.Pow(1000, float64(d.p-p))
	b := o.m * math.Pow(1000, float64(o.p-p))

	return cmpFloat(a, b)
}

// Equals reports whether two durations have identical multiplier and
// precision. Use Cmp for quantity comparison across precisions.
func (d Duration) Equals(o Duration) bool {
	return d.m == o.m && d.p == o.p
}

func boundless(d Duration) float64 {
	if d.Infinite() {
		return d.m
	}

	return d.Seconds()
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Duration) String() string {
	if d.Infinite() {
		if math.Signbit(d.m) {
			return "-inf"
		}

		return "inf"
	}

	return fmt.Sprintf("%g%ss", d.m, d.p)
}

type durationJSON struct {
	Multiplier json.RawMessage `json:"multiplier"`
	Precision  int             `json:"precision"`
}

// MarshalJSON encodes the duration as {multiplier, precision}. Infinite
// multipliers encode as the strings "inf" and "-inf".
func (d Duration) MarshalJSON() ([]byte, error) {
	var m json.RawMessage

	if d.Infinite() {
		if math.Signbit(d.m) {
			m = json.RawMessage(`"-inf"`)
		} else {
			m = json.RawMessage(`"inf"`)
		}
	} else {
		m = json.RawMessage(fmt.Sprintf("%d", int64(d.m)))
	}

	return json.Marshal(durationJSON{Multiplier: m, Precision: int(d.p)})
}

// UnmarshalJSON decodes the {multiplier, precision} representation.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw durationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.p = Scale(raw.Precision)

	var i int64
	if err := json.Unmarshal(raw.Multiplier, &i); err == nil {
		d.m = float64(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Multiplier, &s); err != nil {
		return err
	}

	switch s {
	case "inf":
		d.m = math.Inf(1)
	case "-inf":
		d.m = math.Inf(-1)
	default:
		return fmt.Errorf("invalid duration multiplier %q", s)
	}

	return nil
}
