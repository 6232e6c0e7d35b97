package sim

import (
	"github.com/romain1189/quartz/hooking"
	"github.com/romain1189/quartz/stateful"
	"github.com/romain1189/quartz/timing"
)

// An Atomic model is a leaf of the model graph. It declares its next
// self-activation through TimeAdvance and reacts to the PDEVS transition
// functions. Concrete models embed AtomicBase and override the behavior
// they need; the base provides a passive model whose confluent transition
// is the internal transition followed by the external one.
type Atomic interface {
	Model

	// TimeAdvance returns the duration until the next self-activation from
	// the current state. It must not mutate state.
	TimeAdvance() timing.Duration

	// InternalTransition mutates state on self-activation.
	InternalTransition()

	// ExternalTransition mutates state on external input. The bag is never
	// empty.
	ExternalTransition(bag Bag)

	// ConfluentTransition is invoked when self-activation coincides with
	// external input.
	ConfluentTransition(bag Bag)

	// Output emits values to output ports via Post. It is invoked
	// immediately before an internal or confluent transition.
	Output()

	atomicBase() *AtomicBase
}

// message is one value emitted on an output port during the output wave.
type message struct {
	port  *Port
	value interface{}
}

// AtomicBase provides the kernel-facing plumbing of an atomic model:
// ports, precision, kernel-maintained elapsed time, declarative state, and
// the output accumulator.
type AtomicBase struct {
	modelBase

	precision timing.Scale
	elapsed   timing.Duration

	stateType *stateful.Type
	state     *stateful.State

	self   Atomic
	proc   *Simulator
	outbox []message
}

// NewAtomicBase creates the base of an atomic model with Base precision.
func NewAtomicBase(name string) *AtomicBase {
	return &AtomicBase{
		modelBase: makeModelBase(name),
		precision: timing.Base,
	}
}

func (a *AtomicBase) atomicBase() *AtomicBase { return a }

// AddInputPort declares an input port. Re-declaring a name returns the
// existing port.
func (a *AtomicBase) AddInputPort(name string) *Port {
	return a.addPort(a.hostModel(), Input, name)
}

// AddOutputPort declares an output port.
func (a *AtomicBase) AddOutputPort(name string) *Port {
	return a.addPort(a.hostModel(), Output, name)
}

// hostModel returns the outer model when it is known. Ports declared before
// the model is wrapped by a simulator are re-hosted at bind time.
func (a *AtomicBase) hostModel() Model {
	if a.self != nil {
		return a.self
	}

	return a
}

// AddObserver attaches an observer to the transitions of the model.
func (a *AtomicBase) AddObserver(o hooking.Observer) {
	a.AcceptHook(hooking.ObserverHook{Observer: o})
}

// SetPrecision sets the time scale of the model. The kernel rescales the
// model's elapsed time and time advance into this precision.
func (a *AtomicBase) SetPrecision(s timing.Scale) {
	a.precision = s
}

// Precision returns the time scale of the model.
func (a *AtomicBase) Precision() timing.Scale { return a.precision }

// Elapsed returns the time since the last transition of the model, rescaled
// to the model precision. It is maintained by the kernel.
func (a *AtomicBase) Elapsed() timing.Duration { return a.elapsed }

func (a *AtomicBase) setElapsed(d timing.Duration) {
	a.elapsed = d.Rescale(a.precision)
}

// DeclareState ties the model to a state type. The initial state is built
// from the type's defaults when the simulation initializes.
func (a *AtomicBase) DeclareState(t *stateful.Type) {
	a.stateType = t
}

// State returns the current state of the model, or nil when the model does
// not use declarative state.
func (a *AtomicBase) State() *stateful.State { return a.state }

// SetState assigns a state instance. A state built by a different type than
// the declared one is rejected, including parent or subclass state types.
func (a *AtomicBase) SetState(s *stateful.State) {
	if a.stateType == nil || s == nil || s.Type() != a.stateType {
		got := "<nil>"
		if s != nil {
			got = s.Type().ID()
		}

		want := "<none>"
		if a.stateType != nil {
			want = a.stateType.ID()
		}

		panic(&InvalidStateError{Model: a.name, Got: got, Want: want})
	}

	a.state = s
}

func (a *AtomicBase) initState() {
	if a.stateType != nil && a.state == nil {
		a.state = a.stateType.New(nil)
	}
}

// Post emits a value on an output port during Output. Posting to a port of
// another host is an error.
func (a *AtomicBase) Post(value interface{}, port *Port) {
	if port.Host() != a.hostModel() {
		panic(&InvalidPortHostError{Model: a.name, Port: port.FullName()})
	}

	if port.Mode() != Output {
		panic(&InvalidPortHostError{Model: a.name, Port: port.FullName()})
	}

	a.outbox = append(a.outbox, message{port: port, value: value})
}

func (a *AtomicBase) clearOutbox() {
	a.outbox = a.outbox[:0]
}

func (a *AtomicBase) takeOutbox() []message {
	return a.outbox
}

// attachSelf records the outer model. Ports declared while only the base
// was known move to the outer model.
func (a *AtomicBase) attachSelf(self Atomic) {
	if a.self == self {
		return
	}

	a.self = self

	for _, p := range a.inputOrder {
		p.host = self
	}

	for _, p := range a.outputOrder {
		p.host = self
	}
}

// bind attaches the model to its owning simulator. A model already owned by
// another processor cannot be driven by a second one.
func (a *AtomicBase) bind(self Atomic, proc *Simulator) {
	if a.proc != nil && a.proc != proc {
		panic(&InvalidProcessorError{Model: a.name})
	}

	a.attachSelf(self)
	a.proc = proc
}

// TimeAdvance returns infinity: the base model is passive.
func (a *AtomicBase) TimeAdvance() timing.Duration {
	return timing.Infinity
}

// InternalTransition does nothing by default.
func (a *AtomicBase) InternalTransition() {}

// ExternalTransition does nothing by default.
func (a *AtomicBase) ExternalTransition(Bag) {}

// ConfluentTransition runs the internal transition followed by the external
// one, the PDEVS default. Models may override it independently of the two.
func (a *AtomicBase) ConfluentTransition(bag Bag) {
	a.self.InternalTransition()
	a.self.ExternalTransition(bag)
}

// Output emits nothing by default.
func (a *AtomicBase) Output() {}
