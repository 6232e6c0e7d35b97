// Package eventset provides the priority queues that order processors by
// their next transition time. All disciplines share one interface and one
// tie-breaking rule: entries scheduled for the same instant are returned
// together, in insertion order.
package eventset

import (
	"fmt"

	"github.com/romain1189/quartz/timing"
)

//go:generate mockgen -destination "mock_entry_test.go" -package eventset -write_package_comment=false -source eventset.go

// An Entry is an element schedulable in an event set. The kernel uses
// processors as entries.
type Entry interface {
	// NextTime returns the time of the next transition of the entry.
	NextTime() timing.TimePoint
}

// An EventSet is a priority queue over entries keyed by their next
// transition time.
type EventSet interface {
	// Push inserts an entry keyed by its current next time.
	Push(e Entry)

	// Adjust re-keys an entry after its next time changed.
	Adjust(e Entry)

	// Delete removes an entry.
	Delete(e Entry)

	// PopImminent removes and returns every entry scheduled for the
	// minimum time, in insertion order.
	PopImminent() []Entry

	// PeekMinTime returns the minimum scheduled time. The second return
	// value is false when the set is empty.
	PeekMinTime() (timing.TimePoint, bool)

	// Size returns the number of entries in the set.
	Size() int
}

// Kind selects an event set discipline.
type Kind int

const (
	// BinaryHeap is the array-backed min-heap, the default discipline.
	BinaryHeap Kind = iota

	// FibonacciHeap has amortized O(1) push and decrease-key.
	FibonacciHeap

	// HeapSet groups same-time entries into buckets under an outer heap,
	// reducing comparisons when many entries are simultaneous.
	HeapSet

	// LadderQueue is a multi-tier bucket calendar for narrow time
	// distributions. Experimental.
	LadderQueue

	// CalendarQueue is a single-tier rotating bucket calendar for narrow
	// time distributions. Experimental.
	CalendarQueue
)

var kindNames = map[Kind]string{
	BinaryHeap:    "binary_heap",
	FibonacciHeap: "fibonacci_heap",
	HeapSet:       "heap_set",
	LadderQueue:   "ladder_queue",
	CalendarQueue: "calendar_queue",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindFromString parses a discipline name as used in configuration files.
func KindFromString(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}

	return BinaryHeap, fmt.Errorf("unknown event set kind %q", name)
}

// New creates an event set of the given kind.
func New(k Kind) EventSet {
	switch k {
	case BinaryHeap:
		return newBinaryHeap()
	case FibonacciHeap:
		return newFibonacciHeap()
	case HeapSet:
		return newHeapSet()
	case LadderQueue:
		return newLadderQueue()
	case CalendarQueue:
		return newCalendarQueue()
	default:
		panic(fmt.Sprintf("unknown event set kind %d", int(k)))
	}
}
