package timing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A TimePoint is a point on the virtual time axis, held as a sparse
// positional number over base-1000 digit groups. The representation is
// exact: advancing by a fine-grained duration refines the point instead of
// rounding it, so a simulation can mix nanosecond and kilosecond durations
// without drift. The scale of the last advance is recoverable.
type TimePoint struct {
	digits    []int64
	precision Scale
	advance   Scale
	infinite  bool
}

// MakeTimePoint returns the zero time point at Base precision.
func MakeTimePoint() TimePoint {
	return TimePoint{precision: Base, advance: Base}
}

// InfinityPoint returns the time point that is never reached.
func InfinityPoint() TimePoint {
	return TimePoint{infinite: true, precision: Base, advance: Base}
}

// Infinite reports whether the point is the unreachable point.
func (t TimePoint) Infinite() bool { return t.infinite }

// IsZero reports whether the point is the origin.
func (t TimePoint) IsZero() bool {
	if t.infinite {
		return false
	}

	for _, d := range t.digits {
		if d != 0 {
			return false
		}
	}

	return true
}

// Precision returns the scale of the least significant digit group.
func (t TimePoint) Precision() Scale { return t.precision }

// AdvanceScale returns the scale of the duration of the last advance.
func (t TimePoint) AdvanceScale() Scale { return t.advance }

// Advance returns the point moved forward by d. Advancing by an infinite
// duration yields the unreachable point. The clock is monotone: a negative
// duration is rejected.
func (t TimePoint) Advance(d Duration) TimePoint {
	if t.infinite {
		return t
	}

	if d.Infinite() {
		return TimePoint{infinite: true, precision: t.precision, advance: d.Precision()}
	}

	if d.Multiplier() < 0 {
		panic(fmt.Sprintf("cannot advance time backwards by %s", d))
	}

	n := int64(math.Round(d.Multiplier()))

	out := TimePoint{
		digits:    append([]int64(nil), t.digits...),
		precision: t.precision,
		advance:   d.Precision(),
	}

	if d.Precision() < out.precision {
		pad := make([]int64, int(out.precision-d.Precision()))
		out.digits = append(pad, out.digits...)
		out.precision = d.Precision()
	}

	pos := int(d.Precision() - out.precision)
	carry := n

	for i := pos; carry > 0; i++ {
		for i >= len(out.digits) {
			out.digits = append(out.digits, 0)
		}

		total := out.digits[i] + carry
		out.digits[i] = total % 1000
		carry = total / 1000
	}

	return out
}

// Diff returns the duration t - o as an unfixed duration. The result carries
// the finer of the two precisions, coarsened if the multiplier overflows.
func (t TimePoint) Diff(o TimePoint) Duration {
	if t.infinite && o.infinite {
		panic(&ArithmeticError{Op: "Diff"})
	}

	if t.infinite {
		return Infinity
	}

	if o.infinite {
		return Infinity.Neg()
	}

	sign := t.Cmp(o)
	if sign == 0 {
		p := t.precision
		if o.precision < p {
			p = o.precision
		}

		return MakeDuration(0, p)
	}

	hi, lo := t, o
	if sign < 0 {
		hi, lo = o, t
	}

	p := hi.precision
	if lo.precision < p {
		p = lo.precision
	}

	a := hi.alignedDigits(p)
	b := lo.alignedDigits(p)

	for len(b) < len(a) {
		b = append(b, 0)
	}

	diff := make([]int64, len(a))
	borrow := int64(0)

	for i := range a {
		v := a[i] - b[i] - borrow
		borrow = 0

		if v < 0 {
			v += 1000
			borrow = 1
		}

		diff[i] = v
	}

	high := len(diff) - 1
	for high > 0 && diff[high] == 0 {
		high--
	}

	m := float64(0)
	last := high

	for i := high; i >= 0; i-- {
		if math.Abs(m*1000)+999 >= MultiplierLimit {
			break
		}

		m = m*1000 + float64(diff[i])
		last = i
	}

	return MakeDuration(m*float64(sign), p+Scale(last))
}

// alignedDigits returns the digit groups with the least significant group at
// scale p. p must not be coarser than the point's precision.
func (t TimePoint) alignedDigits(p Scale) []int64 {
	pad := make([]int64, int(t.precision-p))
	return append(pad, t.digits...)
}

// Cmp compares two time points. The unreachable point is later than every
// finite point.
func (t TimePoint) Cmp(o TimePoint) int {
	switch {
	case t.infinite && o.infinite:
		return 0
	case t.infinite:
		return 1
	case o.infinite:
		return -1
	}

	p := t.precision
	if o.precision < p {
		p = o.precision
	}

	a := t.alignedDigits(p)
	b := o.alignedDigits(p)

	for len(a) < len(b) {
		a = append(a, 0)
	}

	for len(b) < len(a) {
		b = append(b, 0)
	}

	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}

			return 1
		}
	}

	return 0
}

// Equal reports whether two points denote the same instant.
func (t TimePoint) Equal(o TimePoint) bool {
	return t.Cmp(o) == 0
}

// Seconds returns the point as a floating-point number of seconds since the
// origin. The conversion is lossy for points far from the origin.
func (t TimePoint) Seconds() float64 {
	if t.infinite {
		return math.Inf(1)
	}

	v := float64(0)
	for i, d := range t.digits {
		v += float64(d) * (t.precision + Scale(i)).Factor()
	}

	return v
}

// Key returns a canonical string for the instant. Two points that compare
// equal share the same key regardless of their internal precision.
func (t TimePoint) Key() string {
	if t.infinite {
		return "inf"
	}

	low := 0
	for low < len(t.digits) && t.digits[low] == 0 {
		low++
	}

	high := len(t.digits) - 1
	for high >= low && t.digits[high] == 0 {
		high--
	}

	if high < low {
		return "0"
	}

	var sb strings.Builder

	sb.WriteString(strconv.Itoa(int(t.precision) + low))
	sb.WriteByte('@')

	for i := high; i >= low; i-- {
		sb.WriteString(strconv.FormatInt(t.digits[i], 10))

		if i > low {
			sb.WriteByte(':')
		}
	}

	return sb.String()
}

func (t TimePoint) String() string {
	if t.infinite {
		return "inf"
	}

	return fmt.Sprintf("%gs", t.Seconds())
}
