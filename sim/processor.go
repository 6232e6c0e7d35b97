package sim

import (
	"sort"

	"github.com/romain1189/quartz/eventset"
	"github.com/romain1189/quartz/hooking"
	"github.com/romain1189/quartz/timing"
)

// A processor is the runtime shadow of a model: a Simulator wraps an atomic
// model, a Coordinator wraps a coupled model. Each processor exclusively
// owns its model's runtime state.
type processor interface {
	eventset.Entry
	Named

	// initialize builds the runtime state at the start time.
	initialize(t timing.TimePoint)

	// collectOutputs runs the output wave at time t: every imminent leaf of
	// the subtree emits, and the values are routed to their destinations.
	collectOutputs(t timing.TimePoint)

	// transition runs the transition wave at time t on the imminent and
	// activated parts of the subtree.
	transition(t timing.TimePoint)

	// lastTime returns the time of the last transition.
	lastTime() timing.TimePoint
}

// A Simulator drives one atomic model.
type Simulator struct {
	model  Atomic
	sim    *Simulation
	parent *Coordinator

	tl timing.TimePoint
	tn timing.TimePoint

	bag     Bag
	pending bool
}

func newSimulator(m Atomic, sim *Simulation, parent *Coordinator) *Simulator {
	return &Simulator{
		model:  m,
		sim:    sim,
		parent: parent,
		bag:    make(Bag),
	}
}

// Name returns the name of the wrapped model.
func (s *Simulator) Name() string { return s.model.Name() }

// NextTime returns the time of the next scheduled transition.
func (s *Simulator) NextTime() timing.TimePoint { return s.tn }

func (s *Simulator) lastTime() timing.TimePoint { return s.tl }

// LastTime returns the time of the last transition.
func (s *Simulator) LastTime() timing.TimePoint { return s.tl }

// Model returns the wrapped atomic model.
func (s *Simulator) Model() Atomic { return s.model }

func (s *Simulator) initialize(t timing.TimePoint) {
	ab := s.model.atomicBase()
	ab.bind(s.model, s)
	ab.initState()
	ab.setElapsed(timing.MakeDuration(0, ab.precision))

	s.tl = t
	s.tn = t.Advance(s.timeAdvance())

	s.notify(t, hooking.TransitionInit)
	s.sim.stats.record(s.model, hooking.TransitionInit)
}

// timeAdvance queries the model and rescales the result into the model
// precision.
func (s *Simulator) timeAdvance() timing.Duration {
	return s.model.TimeAdvance().Rescale(s.model.atomicBase().precision)
}

func (s *Simulator) collectOutputs(t timing.TimePoint) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*TransitionError); ok {
				panic(r)
			}

			panic(&TransitionError{Model: s.model.Name(), Cause: r})
		}
	}()

	if s.tn.Cmp(t) != 0 {
		return
	}

	ab := s.model.atomicBase()
	ab.clearOutbox()
	s.model.Output()

	for _, msg := range ab.takeOutbox() {
		if msg.port.NumHooks() > 0 {
			msg.port.InvokeHook(hooking.HookCtx{
				Domain: msg.port,
				Pos:    hooking.HookPosPortOutput,
				Item:   msg.value,
				Detail: hooking.TransitionInfo{Time: t},
			})
		}

		s.sim.deliver(msg.port, msg.value)
	}
}

// deliver appends a routed value to the pending input bag and flags the
// activation up the processor tree.
func (s *Simulator) deliver(port *Port, value interface{}) {
	s.bag[port] = append(s.bag[port], value)

	if !s.pending {
		s.pending = true

		if s.parent != nil {
			s.parent.childActivated(s)
		}
	}
}

func (s *Simulator) transition(t timing.TimePoint) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*TransitionError); ok {
				panic(r)
			}

			panic(&TransitionError{Model: s.model.Name(), Cause: r})
		}
	}()

	imminent := s.tn.Cmp(t) == 0
	hasInput := len(s.bag) > 0

	if !imminent && !hasInput {
		return
	}

	ab := s.model.atomicBase()

	var kind hooking.TransitionKind

	switch {
	case imminent && !hasInput:
		ab.setElapsed(t.Diff(s.tl))
		s.model.InternalTransition()
		kind = hooking.TransitionInternal

	case !imminent:
		ab.setElapsed(t.Diff(s.tl))
		s.model.ExternalTransition(s.bag)
		kind = hooking.TransitionExternal

	default:
		ab.setElapsed(timing.MakeDuration(0, ab.precision))
		s.model.ConfluentTransition(s.bag)
		kind = hooking.TransitionConfluent
	}

	s.tl = t
	s.tn = t.Advance(s.timeAdvance())
	s.bag = make(Bag)
	s.pending = false

	s.notify(t, kind)
	s.sim.stats.record(s.model, kind)
}

func (s *Simulator) notify(t timing.TimePoint, kind hooking.TransitionKind) {
	ab := s.model.atomicBase()
	if ab.NumHooks() == 0 {
		return
	}

	ab.InvokeHook(hooking.HookCtx{
		Domain: ab,
		Pos:    hooking.HookPosTransition,
		Item:   s.model,
		Detail: hooking.TransitionInfo{Time: t, Transition: kind},
	})
}

// A Coordinator drives one coupled model. It owns its child processors and
// an event set keyed by their next transition times; its own next time is
// the minimum over the children.
type Coordinator struct {
	model  *CoupledModel
	sim    *Simulation
	parent *Coordinator

	children   []processor
	childIndex map[processor]int
	es         eventset.EventSet

	tl timing.TimePoint
	tn timing.TimePoint

	imminent  []processor
	activated []processor
	activeSet map[processor]bool
	pending   bool
}

func newCoordinator(
	m *CoupledModel,
	sim *Simulation,
	parent *Coordinator,
) *Coordinator {
	return &Coordinator{
		model:      m,
		sim:        sim,
		parent:     parent,
		childIndex: make(map[processor]int),
		es:         eventset.New(sim.schedulerFor(m)),
		activeSet:  make(map[processor]bool),
	}
}

// Name returns the name of the wrapped model.
func (c *Coordinator) Name() string { return c.model.Name() }

// NextTime returns the minimum next transition time over the children.
func (c *Coordinator) NextTime() timing.TimePoint { return c.tn }

func (c *Coordinator) lastTime() timing.TimePoint { return c.tl }

func (c *Coordinator) initialize(t timing.TimePoint) {
	for _, childModel := range c.model.Children() {
		var child processor

		switch m := childModel.(type) {
		case Atomic:
			child = c.sim.registerSimulator(newSimulator(m, c.sim, c))
		case *CoupledModel:
			child = newCoordinator(m, c.sim, c)
		default:
			panic("unknown model kind for " + childModel.Name())
		}

		c.childIndex[child] = len(c.children)
		c.children = append(c.children, child)

		child.initialize(t)
		c.es.Push(child)
	}

	c.tl = t
	c.tn = c.minTime()
}

func (c *Coordinator) minTime() timing.TimePoint {
	if min, ok := c.es.PeekMinTime(); ok {
		return min
	}

	return timing.InfinityPoint()
}

func (c *Coordinator) collectOutputs(t timing.TimePoint) {
	if c.tn.Cmp(t) != 0 {
		return
	}

	imms := c.es.PopImminent()

	c.imminent = c.imminent[:0]
	for _, e := range imms {
		c.imminent = append(c.imminent, e.(processor))
	}

	// The event set breaks ties by its own push order, which changes as
	// children are popped and pushed back; child insertion order is the
	// contract.
	sort.Slice(c.imminent, func(i, j int) bool {
		return c.childIndex[c.imminent[i]] < c.childIndex[c.imminent[j]]
	})

	for _, child := range c.imminent {
		child.collectOutputs(t)
	}
}

// childActivated marks a child as holding pending input for the transition
// wave, propagating the activation upward.
func (c *Coordinator) childActivated(child processor) {
	if c.activeSet[child] {
		return
	}

	c.activeSet[child] = true
	c.activated = append(c.activated, child)

	if !c.pending {
		c.pending = true

		if c.parent != nil {
			c.parent.childActivated(c)
		}
	}
}

func (c *Coordinator) transition(t timing.TimePoint) {
	affected := append([]processor(nil), c.imminent...)

	for _, child := range c.activated {
		if !containsProcessor(c.imminent, child) {
			affected = append(affected, child)
		}
	}

	sort.Slice(affected, func(i, j int) bool {
		return c.childIndex[affected[i]] < c.childIndex[affected[j]]
	})

	for _, child := range affected {
		child.transition(t)
	}

	// Imminent children were popped during the output wave; activated ones
	// are still queued under a stale time.
	for _, child := range c.imminent {
		c.es.Push(child)
	}

	for _, child := range c.activated {
		if !containsProcessor(c.imminent, child) {
			c.es.Adjust(child)
		}
	}

	c.imminent = c.imminent[:0]
	c.activated = c.activated[:0]
	c.activeSet = make(map[processor]bool)
	c.pending = false

	c.tl = t
	c.tn = c.minTime()
}

func containsProcessor(list []processor, p processor) bool {
	for _, e := range list {
		if e == p {
			return true
		}
	}

	return false
}

// RootCoordinator is the apex of the processor tree. It advances the
// virtual clock and drives the output and transition waves.
type RootCoordinator struct {
	top  *Coordinator
	time timing.TimePoint
}

func newRootCoordinator(top *Coordinator) *RootCoordinator {
	return &RootCoordinator{top: top, time: timing.MakeTimePoint()}
}

// Time returns the current virtual time.
func (r *RootCoordinator) Time() timing.TimePoint { return r.time }

// NextTime returns the time of the next event, or the unreachable point
// when the simulation ran out of events.
func (r *RootCoordinator) NextTime() timing.TimePoint { return r.top.tn }

func (r *RootCoordinator) initialize(t timing.TimePoint) {
	r.time = t
	r.top.initialize(t)
}

// step advances the clock to the next event time and runs one complete
// cycle: all outputs at time t are produced before any transition at t,
// and all transitions at t complete before the clock advances again.
func (r *RootCoordinator) step() {
	t := r.top.tn
	r.time = t

	r.top.collectOutputs(t)
	r.top.transition(t)
}
