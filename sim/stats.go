package sim

import (
	"reflect"

	"github.com/romain1189/quartz/hooking"
)

// TransitionCounts tallies the transitions of one model class.
type TransitionCounts struct {
	Init      uint64 `json:"init"`
	Internal  uint64 `json:"internal"`
	External  uint64 `json:"external"`
	Confluent uint64 `json:"confluent"`
}

// Total returns the number of transitions across all kinds.
func (c TransitionCounts) Total() uint64 {
	return c.Init + c.Internal + c.External + c.Confluent
}

// TransitionStats aggregates transition counters per model class and
// overall.
type TransitionStats struct {
	ByClass map[string]TransitionCounts `json:"by_class"`
	Overall TransitionCounts            `json:"overall"`
}

func newTransitionStats() *TransitionStats {
	return &TransitionStats{ByClass: make(map[string]TransitionCounts)}
}

func (s *TransitionStats) record(m Atomic, kind hooking.TransitionKind) {
	class := modelClass(m)
	counts := s.ByClass[class]

	switch kind {
	case hooking.TransitionInit:
		counts.Init++
		s.Overall.Init++
	case hooking.TransitionInternal:
		counts.Internal++
		s.Overall.Internal++
	case hooking.TransitionExternal:
		counts.External++
		s.Overall.External++
	case hooking.TransitionConfluent:
		counts.Confluent++
		s.Overall.Confluent++
	}

	s.ByClass[class] = counts
}

func (s *TransitionStats) clone() TransitionStats {
	out := TransitionStats{
		ByClass: make(map[string]TransitionCounts, len(s.ByClass)),
		Overall: s.Overall,
	}

	for k, v := range s.ByClass {
		out.ByClass[k] = v
	}

	return out
}

func modelClass(m Atomic) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Name()
}
