package sim

import (
	"github.com/romain1189/quartz/hooking"
)

// PortMode distinguishes input from output ports.
type PortMode int

const (
	// Input marks a port that receives values.
	Input PortMode = iota

	// Output marks a port that emits values.
	Output
)

func (m PortMode) String() string {
	if m == Input {
		return "input"
	}

	return "output"
}

// A Port is one endpoint of a coupling. Ports are created when a model
// declares them and live as long as the model; two ports are the same port
// iff they are the same object.
type Port struct {
	hooking.HookableBase

	host Model
	mode PortMode
	name string
}

// Name returns the name of the port.
func (p *Port) Name() string { return p.name }

// Mode returns whether the port is an input or an output port.
func (p *Port) Mode() PortMode { return p.mode }

// Host returns the model the port belongs to.
func (p *Port) Host() Model { return p.host }

// FullName returns the host-qualified name of the port.
func (p *Port) FullName() string {
	return p.host.Name() + "." + p.name
}

// AddObserver attaches an observer to the values emitted on the port. Only
// output ports of atomic models are observable.
func (p *Port) AddObserver(o hooking.Observer) error {
	if p.mode != Output {
		return &UnobservablePortError{Port: p.FullName()}
	}

	if _, ok := p.host.(Atomic); !ok {
		return &UnobservablePortError{Port: p.FullName()}
	}

	p.AcceptHook(hooking.ObserverHook{Observer: o})

	return nil
}

// A Bag collects the values delivered to the input ports of a model during
// one simulation step. Values on one port keep their delivery order.
type Bag map[*Port][]interface{}

// ValuesOn returns the values delivered on the given port.
func (b Bag) ValuesOn(p *Port) []interface{} {
	return b[p]
}

// Empty reports whether no value was delivered.
func (b Bag) Empty() bool {
	return len(b) == 0
}
