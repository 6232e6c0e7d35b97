package eventset

import (
	"github.com/romain1189/quartz/timing"
)

type timeBucket struct {
	time    timing.TimePoint
	key     string
	entries []bucketSlot
	index   int
}

type bucketSlot struct {
	entry Entry
	seq   uint64
}

// heapSet groups entries scheduled for the same instant into one bucket and
// keeps the buckets in an inner min-heap keyed by time. With many
// simultaneous events the heap only ever compares distinct instants, and the
// whole imminent set pops as one bucket.
type heapSet struct {
	buckets []*timeBucket
	byKey   map[string]*timeBucket
	where   map[Entry]*timeBucket
	seq     uint64
	size    int
}

func newHeapSet() *heapSet {
	return &heapSet{
		byKey: make(map[string]*timeBucket),
		where: make(map[Entry]*timeBucket),
	}
}

func (h *heapSet) Push(e Entry) {
	if _, ok := h.where[e]; ok {
		panic("entry already in event set")
	}

	t := e.NextTime()
	key := t.Key()

	b, ok := h.byKey[key]
	if !ok {
		b = &timeBucket{time: t, key: key, index: len(h.buckets)}
		h.byKey[key] = b
		h.buckets = append(h.buckets, b)
		h.up(b.index)
	}

	b.entries = append(b.entries, bucketSlot{entry: e, seq: h.seq})
	h.seq++
	h.where[e] = b
	h.size++
}

func (h *heapSet) Adjust(e Entry) {
	b, ok := h.where[e]
	if !ok {
		panic("adjusting an entry that is not in the event set")
	}

	var seq uint64
	for _, s := range b.entries {
		if s.entry == e {
			seq = s.seq
			break
		}
	}

	h.Delete(e)
	h.Push(e)

	// Keep the original sequence number so the tie-break survives Adjust.
	nb := h.where[e]
	i := len(nb.entries) - 1
	for ; i > 0 && nb.entries[i-1].seq > seq; i-- {
		nb.entries[i] = nb.entries[i-1]
	}
	nb.entries[i] = bucketSlot{entry: e, seq: seq}
}

func (h *heapSet) Delete(e Entry) {
	b, ok := h.where[e]
	if !ok {
		return
	}

	delete(h.where, e)
	h.size--

	for i, s := range b.entries {
		if s.entry == e {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}

	if len(b.entries) == 0 {
		h.removeBucket(b)
	}
}

func (h *heapSet) PopImminent() []Entry {
	if len(h.buckets) == 0 {
		return nil
	}

	b := h.buckets[0]
	h.removeBucket(b)

	out := make([]Entry, len(b.entries))
	for i, s := range b.entries {
		out[i] = s.entry
		delete(h.where, s.entry)
	}

	h.size -= len(b.entries)

	return out
}

func (h *heapSet) PeekMinTime() (timing.TimePoint, bool) {
	if len(h.buckets) == 0 {
		return timing.TimePoint{}, false
	}

	return h.buckets[0].time, true
}

func (h *heapSet) Size() int {
	return h.size
}

func (h *heapSet) removeBucket(b *timeBucket) {
	delete(h.byKey, b.key)

	last := len(h.buckets) - 1
	i := b.index

	h.swap(i, last)
	h.buckets = h.buckets[:last]

	if i < last {
		moved := h.buckets[i]
		h.up(i)
		h.down(moved.index)
	}
}

func (h *heapSet) less(i, j int) bool {
	return h.buckets[i].time.Cmp(h.buckets[j].time) < 0
}

func (h *heapSet) swap(i, j int) {
	h.buckets[i], h.buckets[j] = h.buckets[j], h.buckets[i]
	h.buckets[i].index = i
	h.buckets[j].index = j
}

func (h *heapSet) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}

		h.swap(i, parent)
		i = parent
	}
}

func (h *heapSet) down(i int) {
	n := len(h.buckets)

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
