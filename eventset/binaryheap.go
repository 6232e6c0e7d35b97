package eventset

import (
	"sort"

	"github.com/romain1189/quartz/timing"
)

type heapSlot struct {
	entry Entry
	time  timing.TimePoint
	seq   uint64
	index int
}

// binaryHeap is an array-backed min-heap keyed by next transition time, with
// a side map from entry to slot for O(log n) adjust and delete.
type binaryHeap struct {
	slots []*heapSlot
	where map[Entry]*heapSlot
	seq   uint64
}

func newBinaryHeap() *binaryHeap {
	return &binaryHeap{where: make(map[Entry]*heapSlot)}
}

func (h *binaryHeap) Push(e Entry) {
	if _, ok := h.where[e]; ok {
		panic("entry already in event set")
	}

	s := &heapSlot{
		entry: e,
		time:  e.NextTime(),
		seq:   h.seq,
		index: len(h.slots),
	}
	h.seq++

	h.slots = append(h.slots, s)
	h.where[e] = s
	h.up(s.index)
}

func (h *binaryHeap) Adjust(e Entry) {
	s, ok := h.where[e]
	if !ok {
		panic("adjusting an entry that is not in the event set")
	}

	s.time = e.NextTime()
	h.fix(s.index)
}

func (h *binaryHeap) Delete(e Entry) {
	s, ok := h.where[e]
	if !ok {
		return
	}

	delete(h.where, e)

	last := len(h.slots) - 1
	i := s.index

	h.swap(i, last)
	h.slots = h.slots[:last]

	if i < last {
		h.fix(i)
	}
}

func (h *binaryHeap) PopImminent() []Entry {
	if len(h.slots) == 0 {
		return nil
	}

	min := h.slots[0].time

	var popped []*heapSlot
	for len(h.slots) > 0 && h.slots[0].time.Cmp(min) == 0 {
		popped = append(popped, h.popMin())
	}

	sort.Slice(popped, func(i, j int) bool {
		return popped[i].seq < popped[j].seq
	})

	out := make([]Entry, len(popped))
	for i, s := range popped {
		out[i] = s.entry
	}

	return out
}

func (h *binaryHeap) popMin() *heapSlot {
	s := h.slots[0]

	last := len(h.slots) - 1
	h.swap(0, last)
	h.slots = h.slots[:last]

	if last > 0 {
		h.down(0)
	}

	delete(h.where, s.entry)

	return s
}

func (h *binaryHeap) PeekMinTime() (timing.TimePoint, bool) {
	if len(h.slots) == 0 {
		return timing.TimePoint{}, false
	}

	return h.slots[0].time, true
}

func (h *binaryHeap) Size() int {
	return len(h.slots)
}

func (h *binaryHeap) less(i, j int) bool {
	c := h.slots[i].time.Cmp(h.slots[j].time)
	if c != 0 {
		return c < 0
	}

	return h.slots[i].seq < h.slots[j].seq
}

func (h *binaryHeap) swap(i, j int) {
	h.slots[i], h.slots[j] = h.slots[j], h.slots[i]
	h.slots[i].index = i
	h.slots[j].index = j
}

func (h *binaryHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}

		h.swap(i, parent)
		i = parent
	}
}

func (h *binaryHeap) down(i int) {
	n := len(h.slots)

	for {
		left := 2*i + 1
		if left >= n {
			break
		}

		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}

		if !h.less(smallest, i) {
			break
		}

		h.swap(i, smallest)
		i = smallest
	}
}

func (h *binaryHeap) fix(i int) {
	s := h.slots[i]
	h.up(i)
	h.down(s.index)
}
