package eventset

import (
	"math"
	"sort"

	"github.com/romain1189/quartz/timing"
)

type calSlot struct {
	entry  Entry
	time   timing.TimePoint
	sec    float64
	seq    uint64
	bucket int
}

// calendarQueue is a rotating bucket calendar after Brown's classic design.
// Entries hash into day buckets by time; dequeueing sweeps the calendar from
// the last dequeue position one day at a time. The calendar resizes and
// re-estimates the bucket width as the population grows and shrinks. Best
// suited to narrow time distributions; entries at infinity are parked aside.
type calendarQueue struct {
	buckets [][]*calSlot
	width   float64

	curBucket int
	curTop    float64

	where  map[Entry]*calSlot
	parked []*calSlot
	seq    uint64
	size   int
}

const calInitialBuckets = 2

func newCalendarQueue() *calendarQueue {
	return &calendarQueue{
		buckets: make([][]*calSlot, calInitialBuckets),
		width:   1.0,
		curTop:  1.0,
		where:   make(map[Entry]*calSlot),
	}
}

func (q *calendarQueue) Push(e Entry) {
	if _, ok := q.where[e]; ok {
		panic("entry already in event set")
	}

	slot := &calSlot{entry: e, time: e.NextTime(), seq: q.seq}
	q.seq++

	slot.sec = slot.time.Seconds()
	q.where[e] = slot
	q.insert(slot)
	q.size++

	if q.size > 2*len(q.buckets) {
		q.resize(2 * len(q.buckets))
	}
}

func (q *calendarQueue) insert(slot *calSlot) {
	if slot.time.Infinite() {
		slot.bucket = -1
		q.parked = append(q.parked, slot)

		return
	}

	i := q.bucketIndex(slot.sec)
	slot.bucket = i

	// An insert before the sweep day rewinds the sweep, otherwise the next
	// search could settle on a later head that is inside its day window.
	if slot.sec < q.curTop-q.width {
		q.curBucket = i
		q.curTop = math.Floor(slot.sec/q.width)*q.width + q.width
	}

	b := q.buckets[i]
	at := sort.Search(len(b), func(j int) bool {
		return q.slotLess(slot, b[j])
	})

	b = append(b, nil)
	copy(b[at+1:], b[at:])
	b[at] = slot
	q.buckets[i] = b
}

func (q *calendarQueue) slotLess(a, b *calSlot) bool {
	c := a.time.Cmp(b.time)
	if c != 0 {
		return c < 0
	}

	return a.seq < b.seq
}

func (q *calendarQueue) bucketIndex(sec float64) int {
	day := int(math.Floor(sec / q.width))

	i := day % len(q.buckets)
	if i < 0 {
		i += len(q.buckets)
	}

	return i
}

func (q *calendarQueue) Adjust(e Entry) {
	slot, ok := q.where[e]
	if !ok {
		panic("adjusting an entry that is not in the event set")
	}

	q.remove(slot)

	slot.time = e.NextTime()
	slot.sec = slot.time.Seconds()
	q.insert(slot)
}

func (q *calendarQueue) Delete(e Entry) {
	slot, ok := q.where[e]
	if !ok {
		return
	}

	q.remove(slot)
	delete(q.where, e)
	q.size--

	if len(q.buckets) > calInitialBuckets && q.size < len(q.buckets)/2 {
		q.resize(len(q.buckets) / 2)
	}
}

func (q *calendarQueue) remove(slot *calSlot) {
	if slot.bucket < 0 {
		for i, s := range q.parked {
			if s == slot {
				q.parked = append(q.parked[:i], q.parked[i+1:]...)
				break
			}
		}

		return
	}

	b := q.buckets[slot.bucket]
	for i, s := range b {
		if s == slot {
			q.buckets[slot.bucket] = append(b[:i], b[i+1:]...)
			break
		}
	}
}

func (q *calendarQueue) PopImminent() []Entry {
	slot := q.findMin()
	if slot == nil {
		return q.popParked()
	}

	min := slot.time

	var out []Entry
	b := q.buckets[slot.bucket]

	for len(b) > 0 && b[0].time.Cmp(min) == 0 {
		s := b[0]
		b = b[1:]
		out = append(out, s.entry)
		delete(q.where, s.entry)
		q.size--
	}

	q.buckets[slot.bucket] = b
	q.curBucket = slot.bucket
	q.curTop = math.Floor(slot.sec/q.width)*q.width + q.width

	return out
}

func (q *calendarQueue) popParked() []Entry {
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

func (q *calendarQueue) PeekMinTime() (timing.TimePoint, bool) {
	if slot := q.findMin(); slot != nil {
		return slot.time, true
	}

	if len(q.parked) > 0 {
		return timing.InfinityPoint(), true
	}

	return timing.TimePoint{}, false
}

// findMin sweeps the calendar one day at a time from the last dequeue
// position, falling back to a direct search after a full year without a
// head inside its day window.
func (q *calendarQueue) findMin() *calSlot {
	n := len(q.buckets)

	for i := 0; i < n; i++ {
		b := (q.curBucket + i) % n
		top := q.curTop + float64(i)*q.width

		if len(q.buckets[b]) > 0 && q.buckets[b][0].sec <= top {
			return q.buckets[b][0]
		}
	}

	var best *calSlot
	for _, b := range q.buckets {
		if len(b) == 0 {
			continue
		}

		if best == nil || q.slotLess(b[0], best) {
			best = b[0]
		}
	}

	if best != nil {
		q.curBucket = best.bucket
		q.curTop = math.Floor(best.sec/q.width)*q.width + q.width
	}

	return best
}

func (q *calendarQueue) Size() int {
	return q.size
}

// resize rebuilds the calendar with a new day count and a bucket width
// estimated from the average separation of the queued entries.
func (q *calendarQueue) resize(n int) {
	var all []*calSlot
	for _, b := range q.buckets {
		all = append(all, b...)
	}

	q.width = q.estimateWidth(all)
	q.buckets = make([][]*calSlot, n)

	for _, slot := range all {
		q.insert(slot)
	}

	if min := q.findMin(); min != nil {
		q.curBucket = min.bucket
		q.curTop = math.Floor(min.sec/q.width)*q.width + q.width
	} else {
		q.curBucket = 0
		q.curTop = q.width
	}
}

func (q *calendarQueue) estimateWidth(all []*calSlot) float64 {
	if len(all) < 2 {
		return 1.0
	}

	secs := make([]float64, len(all))
	for i, s := range all {
		secs[i] = s.sec
	}

	sort.Float64s(secs)

	span := secs[len(secs)-1] - secs[0]
	if span <= 0 {
		return 1.0
	}

	width := 3 * span / float64(len(secs))
	if width <= 0 || math.IsInf(width, 0) || math.IsNaN(width) {
		return 1.0
	}

	return width
}
