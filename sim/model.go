// Package sim implements the PDEVS simulation kernel: the hierarchical
// model graph with its port and coupling routing, the processor tree that
// coordinates transitions, and the simulation driver.
package sim

import (
	"github.com/romain1189/quartz/hooking"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Model is a node of the hierarchical model graph, either atomic or
// coupled. Models own their ports; couplings reference ports of sibling or
// parent/child models.
type Model interface {
	Named
	hooking.Hookable

	// Parent returns the coupled model this model is a child of, or nil
	// for the root.
	Parent() *CoupledModel

	// InputPort returns the input port with the given name.
	InputPort(name string) (*Port, error)

	// OutputPort returns the output port with the given name.
	OutputPort(name string) (*Port, error)

	// InputPorts returns the input ports in declaration order.
	InputPorts() []*Port

	// OutputPorts returns the output ports in declaration order.
	OutputPorts() []*Port

	setParent(parent *CoupledModel)
}

// modelBase carries the name, parent back reference, and port maps shared by
// atomic and coupled models.
type modelBase struct {
	hooking.HookableBase

	name   string
	parent *CoupledModel

	inputs      map[string]*Port
	outputs     map[string]*Port
	inputOrder  []*Port
	outputOrder []*Port
}

func makeModelBase(name string) modelBase {
	return modelBase{
		name:    name,
		inputs:  make(map[string]*Port),
		outputs: make(map[string]*Port),
	}
}

// Name returns the name of the model.
func (m *modelBase) Name() string { return m.name }

// Parent returns the coupled model this model is a child of, or nil.
func (m *modelBase) Parent() *CoupledModel { return m.parent }

func (m *modelBase) setParent(parent *CoupledModel) { m.parent = parent }

func (m *modelBase) addPort(host Model, mode PortMode, name string) *Port {
	ports := m.inputs
	if mode == Output {
		ports = m.outputs
	}

	if p, ok := ports[name]; ok {
		return p
	}

	p := &Port{host: host, mode: mode, name: name}
	ports[name] = p

	if mode == Input {
		m.inputOrder = append(m.inputOrder, p)
	} else {
		m.outputOrder = append(m.outputOrder, p)
	}

	return p
}

// InputPort returns the input port with the given name.
func (m *modelBase) InputPort(name string) (*Port, error) {
	p, ok := m.inputs[name]
	if !ok {
		return nil, &NoSuchPortError{Model: m.name, Port: name}
	}

	return p, nil
}

// OutputPort returns the output port with the given name.
func (m *modelBase) OutputPort(name string) (*Port, error) {
	p, ok := m.outputs[name]
	if !ok {
		return nil, &NoSuchPortError{Model: m.name, Port: name}
	}

	return p, nil
}

// InputPorts returns the input ports in declaration order.
func (m *modelBase) InputPorts() []*Port { return m.inputOrder }

// OutputPorts returns the output ports in declaration order.
func (m *modelBase) OutputPorts() []*Port { return m.outputOrder }
