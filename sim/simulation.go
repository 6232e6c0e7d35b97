package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/romain1189/quartz/eventset"
	"github.com/romain1189/quartz/hooking"
	"github.com/romain1189/quartz/timing"
)

// Builder assembles a Simulation.
type Builder struct {
	model             *CoupledModel
	scheduler         eventset.Kind
	schedulerSet      bool
	maintainHierarchy bool
	endTime           timing.Duration
	hasEnd            bool
}

// MakeBuilder creates a builder with the default configuration: hierarchy
// maintained, binary-heap event sets, no end time.
func MakeBuilder() Builder {
	return Builder{maintainHierarchy: true}
}

// WithModel sets the root coupled model of the simulation.
func (b Builder) WithModel(m *CoupledModel) Builder {
	b.model = m
	return b
}

// WithScheduler forces the event set discipline for every coordinator,
// overriding any preference declared by a coupled model.
func (b Builder) WithScheduler(k eventset.Kind) Builder {
	b.scheduler = k
	b.schedulerSet = true

	return b
}

// WithFlattenedHierarchy collapses the hierarchy into direct leaf-to-leaf
// couplings before the processor tree is built.
func (b Builder) WithFlattenedHierarchy() Builder {
	b.maintainHierarchy = false
	return b
}

// WithEndTime stops the simulation once the virtual clock would pass the
// given duration from the start.
func (b Builder) WithEndTime(d timing.Duration) Builder {
	b.endTime = d
	b.hasEnd = true

	return b
}

// Build creates the simulation. The processor tree is built lazily on the
// first step.
func (b Builder) Build() *Simulation {
	if b.model == nil {
		panic("no root model given to the simulation builder")
	}

	s := &Simulation{
		id:                xid.New().String(),
		model:             b.model,
		scheduler:         b.scheduler,
		schedulerSet:      b.schedulerSet,
		maintainHierarchy: b.maintainHierarchy,
		stats:             newTransitionStats(),
		routes:            make(map[*Port][]*Port),
		simByPort:         make(map[*Port]*Simulator),
		simByModel:        make(map[Atomic]*Simulator),
	}

	if b.hasEnd {
		s.end = timing.MakeTimePoint().Advance(b.endTime)
		s.hasEnd = true
	}

	return s
}

// A Simulation drives a model hierarchy through virtual time. The loop is
// single-threaded and deterministic; observers run synchronously between
// the phases of a step and must not mutate simulator-owned state.
type Simulation struct {
	hooking.HookableBase

	id    string
	model *CoupledModel

	scheduler         eventset.Kind
	schedulerSet      bool
	maintainHierarchy bool

	root   *RootCoordinator
	routes map[*Port][]*Port

	simByPort  map[*Port]*Simulator
	simByModel map[Atomic]*Simulator

	end    timing.TimePoint
	hasEnd bool

	stats     *TransitionStats
	startWall time.Time
	wall      time.Duration

	mu          sync.Mutex
	initialized bool
	finished    bool
	aborted     bool
}

// ID returns the unique identifier of the simulation run.
func (s *Simulation) ID() string { return s.id }

// Model returns the root model the simulation drives.
func (s *Simulation) Model() *CoupledModel { return s.model }

// schedulerFor resolves the event set discipline for a coordinator: the
// builder's choice wins, then the coupled model's declared preference,
// then the binary heap.
func (s *Simulation) schedulerFor(m *CoupledModel) eventset.Kind {
	if s.schedulerSet {
		return s.scheduler
	}

	if kind, ok := m.PreferredEventSet(); ok {
		return kind
	}

	return eventset.BinaryHeap
}

func (s *Simulation) registerSimulator(sim *Simulator) *Simulator {
	for _, p := range sim.model.InputPorts() {
		s.simByPort[p] = sim
	}

	s.simByModel[sim.model] = sim

	return sim
}

// SimulatorOf returns the simulator that owns the given atomic model, or
// nil before initialization.
func (s *Simulation) SimulatorOf(m Atomic) *Simulator {
	return s.simByModel[m]
}

// Initialize builds the processor tree at time zero. It is invoked
// implicitly by the first Step or Simulate call.
func (s *Simulation) Initialize() {
	if s.initialized {
		return
	}

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: hooking.HookPosPreInit, Item: s})

	root := s.model
	if !s.maintainHierarchy {
		root = Flatten(root)
	}

	top := newCoordinator(root, s, nil)
	s.root = newRootCoordinator(top)
	s.root.initialize(timing.MakeTimePoint())
	s.initialized = true

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: hooking.HookPosPostInit, Item: s})
}

// destinations resolves and caches the routing closure of a source port.
// Couplings are immutable during simulation, so the cache never goes stale.
func (s *Simulation) destinations(p *Port) []*Port {
	if dests, ok := s.routes[p]; ok {
		return dests
	}

	dests := routeDestinations(p)
	s.routes[p] = dests

	return dests
}

// deliver routes one emitted value to every destination input port.
func (s *Simulation) deliver(src *Port, value interface{}) {
	for _, dst := range s.destinations(src) {
		receiver, ok := s.simByPort[dst]
		if !ok {
			panic("no simulator owns input port " + dst.FullName())
		}

		receiver.deliver(dst, value)
	}
}

// Step runs one simulation cycle: advance the clock to the next event time,
// run the output wave, then the transition wave. A failure inside a
// transition aborts the simulation and is returned as a TransitionError.
func (s *Simulation) Step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			terr, ok := r.(*TransitionError)
			if !ok {
				panic(r)
			}

			s.abortWith(terr)
			err = terr
		}
	}()

	s.Initialize()

	if s.Done() {
		return nil
	}

	tn := s.root.NextTime()
	if tn.Infinite() {
		s.markFinished()
		return nil
	}

	if s.hasEnd && tn.Cmp(s.end) > 0 {
		s.markFinished()
		return nil
	}

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: hooking.HookPosPreStep, Item: s})

	s.root.step()

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: hooking.HookPosPostStep, Item: s})

	return nil
}

// Simulate runs steps until the event set is exhausted, the end time is
// reached, or the simulation is aborted.
func (s *Simulation) Simulate() error {
	s.Initialize()

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    hooking.HookPosPreSimulation,
		Item:   s,
	})

	s.startWall = time.Now()

	for !s.Done() {
		if err := s.Step(); err != nil {
			s.wall += time.Since(s.startWall)
			return err
		}
	}

	s.wall += time.Since(s.startWall)

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    hooking.HookPosPostSimulation,
		Item:   s,
	})

	return nil
}

// Abort marks the simulation finished. The flag is honored at step
// boundaries; external notifiers may call it from observers.
func (s *Simulation) Abort() {
	s.mu.Lock()
	s.aborted = true
	s.finished = true
	s.mu.Unlock()

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: hooking.HookPosPostAbort, Item: s})
}

func (s *Simulation) abortWith(err *TransitionError) {
	s.mu.Lock()
	s.aborted = true
	s.finished = true
	s.mu.Unlock()

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    hooking.HookPosPostAbort,
		Item:   s,
		Detail: err,
	})
}

func (s *Simulation) markFinished() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}

// Done reports whether the simulation has finished or was aborted.
func (s *Simulation) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.finished
}

// Aborted reports whether the simulation was aborted.
func (s *Simulation) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.aborted
}

// VirtualTime returns the current virtual time. It is safe to read between
// steps.
func (s *Simulation) VirtualTime() timing.TimePoint {
	if s.root == nil {
		return timing.MakeTimePoint()
	}

	return s.root.Time()
}

// TransitionStats returns a copy of the transition counters.
func (s *Simulation) TransitionStats() TransitionStats {
	return s.stats.clone()
}

// ElapsedSeconds returns the wall-clock seconds spent inside Simulate.
func (s *Simulation) ElapsedSeconds() float64 {
	return s.wall.Seconds()
}

func (s *Simulation) String() string {
	return fmt.Sprintf("simulation %s of %s", s.id, s.model.Name())
}
