package eventset

import (
	"sort"

	"github.com/romain1189/quartz/timing"
)

type fibNode struct {
	entry Entry
	time  timing.TimePoint
	seq   uint64

	parent *fibNode
	child  *fibNode
	left   *fibNode
	right  *fibNode

	degree int
	mark   bool

	// forcedMin marks a node being deleted. It compares below every key.
	forcedMin bool
}

// fibonacciHeap is the standard CLRS Fibonacci heap. Adjust to an earlier
// time is a decrease-key; adjust to a later time deletes and reinserts the
// node, keeping its sequence number so the tie-break stays stable.
type fibonacciHeap struct {
	min   *fibNode
	n     int
	where map[Entry]*fibNode
	seq   uint64
}

func newFibonacciHeap() *fibonacciHeap {
	return &fibonacciHeap{where: make(map[Entry]*fibNode)}
}

func (h *fibonacciHeap) Push(e Entry) {
	if _, ok := h.where[e]; ok {
		panic("entry already in event set")
	}

	node := &fibNode{entry: e, time: e.NextTime(), seq: h.seq}
	h.seq++

	h.where[e] = node
	h.insertRoot(node)
	h.n++
}

func (h *fibonacciHeap) Adjust(e Entry) {
	node, ok := h.where[e]
	if !ok {
		panic("adjusting an entry that is not in the event set")
	}

	newTime := e.NextTime()
	c := newTime.Cmp(node.time)
	node.time = newTime

	switch {
	case c < 0:
		h.decreased(node)
	case c > 0:
		h.removeNode(node)
		node.reset()
		h.insertRoot(node)
		h.n++
	}
}

func (h *fibonacciHeap) Delete(e Entry) {
	node, ok := h.where[e]
	if !ok {
		return
	}

	h.removeNode(node)
	delete(h.where, e)
}

// removeNode extracts an arbitrary node by forcing it below every key.
func (h *fibonacciHeap) removeNode(node *fibNode) {
	node.forcedMin = true
	h.decreased(node)
	h.extractMin()
	node.forcedMin = false
}

func (h *fibonacciHeap) PopImminent() []Entry {
	if h.min == nil {
		return nil
	}

	min := h.min.time

	var popped []*fibNode
	for h.min != nil && h.min.time.Cmp(min) == 0 {
		node := h.extractMin()
		delete(h.where, node.entry)
		popped = append(popped, node)
	}

	sort.Slice(popped, func(i, j int) bool {
		return popped[i].seq < popped[j].seq
	})

	out := make([]Entry, len(popped))
	for i, node := range popped {
		out[i] = node.entry
	}

	return out
}

func (h *fibonacciHeap) PeekMinTime() (timing.TimePoint, bool) {
	if h.min == nil {
		return timing.TimePoint{}, false
	}

	return h.min.time, true
}

func (h *fibonacciHeap) Size() int {
	return h.n
}

func (h *fibonacciHeap) less(a, b *fibNode) bool {
	if a.forcedMin != b.forcedMin {
		return a.forcedMin
	}

	c := a.time.Cmp(b.time)
	if c != 0 {
		return c < 0
	}

	return a.seq < b.seq
}

func (h *fibonacciHeap) insertRoot(node *fibNode) {
	if h.min == nil {
		node.left = node
		node.right = node
		h.min = node

		return
	}

	spliceAfter(h.min, node)

	if h.less(node, h.min) {
		h.min = node
	}
}

func (h *fibonacciHeap) extractMin() *fibNode {
	z := h.min

	for z.child != nil {
		c := z.child
		detachChild(z, c)
		c.parent = nil
		spliceAfter(h.min, c)
	}

	if z.right == z {
		h.min = nil
	} else {
		h.min = z.right
		removeFromList(z)
		h.consolidate()
	}

	h.n--
	z.reset()

	return z
}

func (h *fibonacciHeap) consolidate() {
	degrees := make(map[int]*fibNode)

	roots := []*fibNode{}
	start := h.min
	for node := start; ; node = node.right {
		roots = append(roots, node)
		if node.right == start {
			break
		}
	}

	for _, node := range roots {
		if node.parent != nil {
			continue
		}

		x := node
		d := x.degree

		for {
			y, ok := degrees[d]
			if !ok {
				break
			}

			delete(degrees, d)

			if h.less(y, x) {
				x, y = y, x
			}

			h.link(y, x)
			d = x.degree
		}

		degrees[d] = x
	}

	h.min = nil
	for _, node := range degrees {
		if node.parent != nil {
			continue
		}

		if h.min == nil || h.less(node, h.min) {
			h.min = node
		}
	}
}

// link makes y a child of x.
func (h *fibonacciHeap) link(y, x *fibNode) {
	removeFromList(y)
	y.parent = x
	y.mark = false

	if x.child == nil {
		y.left = y
		y.right = y
		x.child = y
	} else {
		spliceAfter(x.child, y)
	}

	x.degree++
}

func (h *fibonacciHeap) decreased(node *fibNode) {
	parent := node.parent

	if parent != nil && h.less(node, parent) {
		h.cut(node, parent)
		h.cascadingCut(parent)
	}

	if h.less(node, h.min) {
		h.min = node
	}
}

func (h *fibonacciHeap) cut(node, parent *fibNode) {
	detachChild(parent, node)
	node.parent = nil
	node.mark = false
	spliceAfter(h.min, node)
}

func (h *fibonacciHeap) cascadingCut(node *fibNode) {
	parent := node.parent
	if parent == nil {
		return
	}

	if !node.mark {
		node.mark = true
		return
	}

	h.cut(node, parent)
	h.cascadingCut(parent)
}

func (n *fibNode) reset() {
	n.parent = nil
	n.child = nil
	n.left = n
	n.right = n
	n.degree = 0
	n.mark = false
}

// spliceAfter inserts node into the circular list right of anchor.
func spliceAfter(anchor, node *fibNode) {
	node.left = anchor
	node.right = anchor.right
	anchor.right.left = node
	anchor.right = node
}

func removeFromList(node *fibNode) {
	node.left.right = node.right
	node.right.left = node.left
}

// detachChild removes node from parent's child list.
func detachChild(parent, node *fibNode) {
	if node.right == node {
		parent.child = nil
	} else {
		if parent.child == node {
			parent.child = node.right
		}

		removeFromList(node)
	}

	parent.degree--
}
