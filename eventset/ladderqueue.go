package eventset

import (
	"math"
	"sort"

	"github.com/romain1189/quartz/timing"
)

type ladSlot struct {
	entry   Entry
	time    timing.TimePoint
	sec     float64
	seq     uint64
	deleted bool
}

type rung struct {
	start   float64
	width   float64
	buckets [][]*ladSlot
	cur     int
}

// ladderQueue is a multi-tier bucket calendar after the ladder queue design:
// far-future entries pile into an unsorted top tier, which is spilled into
// rungs of ever finer buckets on demand, and only the current bucket is ever
// sorted into the bottom tier. Deletion is lazy. Best suited to narrow time
// distributions; entries at infinity are parked aside.
type ladderQueue struct {
	top    []*ladSlot
	topMin float64
	topMax float64

	rungs  []*rung
	bottom []*ladSlot

	parked []*ladSlot
	where  map[Entry]*ladSlot
	seq    uint64
	size   int
}

const (
	ladSpawnThreshold = 50
	ladRungBuckets    = 8
)

func newLadderQueue() *ladderQueue {
	return &ladderQueue{
		topMin: math.Inf(1),
		topMax: math.Inf(-1),
		where:  make(map[Entry]*ladSlot),
	}
}

func (q *ladderQueue) Push(e Entry) {
	if _, ok := q.where[e]; ok {
		panic("entry already in event set")
	}

	slot := &ladSlot{entry: e, time: e.NextTime(), seq: q.seq}
	q.seq++

	slot.sec = slot.time.Seconds()
	q.where[e] = slot
	q.insert(slot)
	q.size++
}

func (q *ladderQueue) insert(slot *ladSlot) {
	if slot.time.Infinite() {
		q.parked = append(q.parked, slot)
		return
	}

	if len(q.rungs) > 0 {
		outer := q.rungs[0]
		end := outer.start + float64(len(outer.buckets))*outer.width

		if slot.sec >= end {
			q.insertTop(slot)
			return
		}

		for _, r := range q.rungs {
			if i := r.bucketFor(slot.sec); i >= r.cur {
				r.buckets[i] = append(r.buckets[i], slot)
				return
			}
		}

		// Before every rung window or inside a drained one: the slot
		// belongs to the epoch currently draining through the bottom.
		q.insertBottom(slot)

		return
	}

	if len(q.bottom) > 0 && slot.sec <= q.bottom[len(q.bottom)-1].sec {
		q.insertBottom(slot)
		return
	}

	q.insertTop(slot)
}

func (q *ladderQueue) insertTop(slot *ladSlot) {
	q.top = append(q.top, slot)
	q.topMin = math.Min(q.topMin, slot.sec)
	q.topMax = math.Max(q.topMax, slot.sec)
}

// bucketFor returns the bucket index covering sec, or -1 when sec is outside
// the rung window.
func (r *rung) bucketFor(sec float64) int {
	if sec < r.start {
		return -1
	}

	i := int((sec - r.start) / r.width)
	if i >= len(r.buckets) {
		return -1
	}

	return i
}

func (q *ladderQueue) insertBottom(slot *ladSlot) {
	at := sort.Search(len(q.bottom), func(i int) bool {
		return ladSlotLess(slot, q.bottom[i])
	})

	q.bottom = append(q.bottom, nil)
	copy(q.bottom[at+1:], q.bottom[at:])
	q.bottom[at] = slot
}

func ladSlotLess(a, b *ladSlot) bool {
	c := a.time.Cmp(b.time)
	if c != 0 {
		return c < 0
	}

	return a.seq < b.seq
}

func (q *ladderQueue) Adjust(e Entry) {
	slot, ok := q.where[e]
	if !ok {
		panic("adjusting an entry that is not in the event set")
	}

	slot.deleted = true

	fresh := &ladSlot{entry: e, time: e.NextTime(), seq: slot.seq}
	fresh.sec = fresh.time.Seconds()

	q.where[e] = fresh
	q.insert(fresh)
}

func (q *ladderQueue) Delete(e Entry) {
	slot, ok := q.where[e]
	if !ok {
		return
	}

	slot.deleted = true
	delete(q.where, e)
	q.size--
}

func (q *ladderQueue) PopImminent() []Entry {
	q.fillBottom()

	if len(q.bottom) == 0 {
		return q.popParked()
	}

	min := q.bottom[0].time

	var out []Entry
	for len(q.bottom) > 0 && q.bottom[0].time.Cmp(min) == 0 {
		slot := q.bottom[0]
		q.bottom = q.bottom[1:]
		out = append(out, slot.entry)
		delete(q.where, slot.entry)
		q.size--
	}

	return out
}

func (q *ladderQueue) popParked() []Entry {
	q.parked = purgeDeleted(q.parked)
	if len(q.parked) == 0 {
		return nil
	}

	sort.Slice(q.parked, func(i, j int) bool {
		return q.parked[i].seq < q.parked[j].seq
	})

	out := make([]Entry, len(q.parked))
	for i, s := range q.parked {
		out[i] = s.entry
		delete(q.where, s.entry)
	}

	q.size -= len(q.parked)
	q.parked = nil

	return out
}

func (q *ladderQueue) PeekMinTime() (timing.TimePoint, bool) {
	q.fillBottom()

	if len(q.bottom) > 0 {
		return q.bottom[0].time, true
	}

	q.parked = purgeDeleted(q.parked)
	if len(q.parked) > 0 {
		return timing.InfinityPoint(), true
	}

	return timing.TimePoint{}, false
}

func (q *ladderQueue) Size() int {
	return q.size
}

// fillBottom drains rungs and the top tier until the bottom holds the
// earliest live entries.
func (q *ladderQueue) fillBottom() {
	q.bottom = purgeDeleted(q.bottom)

	for len(q.bottom) == 0 {
		if len(q.rungs) > 0 {
			q.drainRung()
			continue
		}

		q.top = purgeDeleted(q.top)
		if len(q.top) == 0 {
			return
		}

		q.spillTop()
	}
}

// drainRung moves the next non-empty bucket of the innermost rung into the
// bottom tier, spawning a finer rung when the bucket is too crowded to sort.
func (q *ladderQueue) drainRung() {
	r := q.rungs[len(q.rungs)-1]

	for r.cur < len(r.buckets) {
		r.buckets[r.cur] = purgeDeleted(r.buckets[r.cur])
		if len(r.buckets[r.cur]) > 0 {
			break
		}

		r.buckets[r.cur] = nil
		r.cur++
	}

	if r.cur >= len(r.buckets) {
		q.rungs = q.rungs[:len(q.rungs)-1]
		return
	}

	bucket := r.buckets[r.cur]
	r.buckets[r.cur] = nil
	start := r.start + float64(r.cur)*r.width
	r.cur++

	if len(bucket) > ladSpawnThreshold && r.width > 1e-12 {
		q.spawnRung(start, r.width, bucket)
		return
	}

	sort.Slice(bucket, func(i, j int) bool {
		return ladSlotLess(bucket[i], bucket[j])
	})

	q.bottom = bucket
}

func (q *ladderQueue) spawnRung(start, width float64, slots []*ladSlot) {
	r := &rung{
		start:   start,
		width:   width / ladRungBuckets,
		buckets: make([][]*ladSlot, ladRungBuckets),
	}

	for _, slot := range slots {
		i := r.bucketFor(slot.sec)
		if i < 0 {
			i = len(r.buckets) - 1
		}

		r.buckets[i] = append(r.buckets[i], slot)
	}

	q.rungs = append(q.rungs, r)
}

// spillTop converts the whole top tier into the first rung of a new epoch.
func (q *ladderQueue) spillTop() {
	span := q.topMax - q.topMin
	if span <= 0 {
		span = 1
	}

	r := &rung{
		start:   q.topMin,
		width:   span / ladRungBuckets,
		buckets: make([][]*ladSlot, ladRungBuckets),
	}

	for _, slot := range q.top {
		i := r.bucketFor(slot.sec)
		if i < 0 {
			i = len(r.buckets) - 1
		}

		r.buckets[i] = append(r.buckets[i], slot)
	}

	q.rungs = append(q.rungs, r)
	q.top = nil
	q.topMin = math.Inf(1)
	q.topMax = math.Inf(-1)
}

func purgeDeleted(slots []*ladSlot) []*ladSlot {
	live := slots[:0]
	for _, s := range slots {
		if !s.deleted {
			live = append(live, s)
		}
	}

	return live
}
