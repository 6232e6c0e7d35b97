// Package timing provides the fixed-point time representation used by the
// simulation kernel. Durations are multi-scale fixed-point values, time
// points are sparse positional numbers over base-1000 digit groups.
package timing

import (
	"fmt"
	"math"
)

// Scale is an exponent over base-1000 SI factors. A duration with
// multiplier m at scale s represents m * 1000^s seconds.
type Scale int

// Common SI scales.
const (
	Yocto Scale = -8
	Zepto Scale = -7
	Atto  Scale = -6
	Femto Scale = -5
	Pico  Scale = -4
	Nano  Scale = -3
	Micro Scale = -2
	Milli Scale = -1
	Base  Scale = 0
	Kilo  Scale = 1
	Mega  Scale = 2
	Giga  Scale = 3
	Tera  Scale = 4
	Peta  Scale = 5
)

// Factor returns the scale factor 1000^s as a float.
func (s Scale) Factor() float64 {
	return math.Pow(1000, float64(s))
}

// Times returns the scale of the product of two scaled quantities.
func (s Scale) Times(o Scale) Scale {
	return s + o
}

// Quotient returns the scale of the quotient of two scaled quantities.
func (s Scale) Quotient(o Scale) Scale {
	return s - o
}

// Finer reports whether s is finer (smaller factor) than o.
func (s Scale) Finer(o Scale) bool {
	return s < o
}

// Coarser reports whether s is coarser (larger factor) than o.
func (s Scale) Coarser(o Scale) bool {
	return s > o
}

var scaleSymbols = map[Scale]string{
	Yocto: "y",
	Zepto: "z",
	Atto:  "a",
	Femto: "f",
	Pico:  "p",
	Nano:  "n",
	Micro: "u",
	Milli: "m",
	Base:  "",
	Kilo:  "k",
	Mega:  "M",
	Giga:  "G",
	Tera:  "T",
	Peta:  "P",
}

func (s Scale) String() string {
	if sym, ok := scaleSymbols[s]; ok {
		return sym
	}

	return fmt.Sprintf("e%d", int(s)*3)
}
