package sim

import (
	"github.com/romain1189/quartz/eventset"
)

// CouplingKind classifies a coupling by where its endpoints live.
type CouplingKind int

const (
	// IC is an internal coupling between two children of the same parent.
	IC CouplingKind = iota

	// EIC is an external input coupling from a parent input port to a
	// child input port.
	EIC

	// EOC is an external output coupling from a child output port to a
	// parent output port.
	EOC
)

var couplingKindNames = [...]string{"IC", "EIC", "EOC"}

func (k CouplingKind) String() string {
	return couplingKindNames[k]
}

// A Coupling is a directed link between two ports. Couplings are installed
// during coupled-model assembly and are immutable during simulation.
type Coupling struct {
	Kind CouplingKind
	Src  *Port
	Dst  *Port
}

// A CoupledModel composes child models via couplings. It owns its children
// and the three coupling lists.
type CoupledModel struct {
	modelBase

	children   []Model
	childIndex map[string]Model

	internal        []*Coupling
	externalInputs  []*Coupling
	externalOutputs []*Coupling
	bySrc           map[*Port][]*Coupling

	preferred    eventset.Kind
	hasPreferred bool
}

// NewCoupledModel creates an empty coupled model.
func NewCoupledModel(name string) *CoupledModel {
	return &CoupledModel{
		modelBase:  makeModelBase(name),
		childIndex: make(map[string]Model),
		bySrc:      make(map[*Port][]*Coupling),
	}
}

// AddChild adds a child model and returns it. Child order is significant:
// it fixes the deterministic ordering of simultaneous transitions.
func (c *CoupledModel) AddChild(m Model) Model {
	if _, ok := c.childIndex[m.Name()]; ok {
		panic("duplicated child model " + m.Name())
	}

	if a, ok := m.(Atomic); ok {
		a.atomicBase().attachSelf(a)
	}

	m.setParent(c)
	c.children = append(c.children, m)
	c.childIndex[m.Name()] = m

	return m
}

// Children returns the child models in insertion order.
func (c *CoupledModel) Children() []Model { return c.children }

// Child returns the child with the given name, or nil.
func (c *CoupledModel) Child(name string) Model {
	return c.childIndex[name]
}

// AddInputPort declares an input port on the coupled model itself.
func (c *CoupledModel) AddInputPort(name string) *Port {
	return c.addPort(c, Input, name)
}

// AddOutputPort declares an output port on the coupled model itself.
func (c *CoupledModel) AddOutputPort(name string) *Port {
	return c.addPort(c, Output, name)
}

// Attach installs a coupling between two ports, classifying it as IC, EIC,
// or EOC from the hosts of the endpoints. Duplicate couplings are
// idempotent.
func (c *CoupledModel) Attach(src, dst *Port) error {
	kind, err := c.classify(src, dst)
	if err != nil {
		return err
	}

	if c.hasCoupling(src, dst) {
		return nil
	}

	cpl := &Coupling{Kind: kind, Src: src, Dst: dst}

	switch kind {
	case IC:
		c.internal = append(c.internal, cpl)
	case EIC:
		c.externalInputs = append(c.externalInputs, cpl)
	case EOC:
		c.externalOutputs = append(c.externalOutputs, cpl)
	}

	c.bySrc[src] = append(c.bySrc[src], cpl)

	return nil
}

// attachDirect installs an internal coupling without the duplicate check.
// Flattening uses it to preserve fan-out multiplicity along distinct paths.
func (c *CoupledModel) attachDirect(src, dst *Port) {
	cpl := &Coupling{Kind: IC, Src: src, Dst: dst}
	c.internal = append(c.internal, cpl)
	c.bySrc[src] = append(c.bySrc[src], cpl)
}

func (c *CoupledModel) classify(src, dst *Port) (CouplingKind, error) {
	if src == dst {
		return IC, &FeedbackCouplingError{Port: src.FullName()}
	}

	srcIsSelf := src.Host() == Model(c)
	dstIsSelf := dst.Host() == Model(c)

	if srcIsSelf && dstIsSelf {
		return IC, &FeedbackCouplingError{Port: src.FullName()}
	}

	srcIsChild := c.isChild(src.Host())
	dstIsChild := c.isChild(dst.Host())

	switch {
	case srcIsChild && dstIsChild:
		if src.Mode() != Output || dst.Mode() != Input {
			return IC, c.polarityError(src, dst, "internal couplings run "+
				"from a child output to a child input")
		}

		return IC, nil

	case srcIsSelf && dstIsChild:
		if src.Mode() != Input || dst.Mode() != Input {
			return EIC, c.polarityError(src, dst, "external input "+
				"couplings run from a parent input to a child input")
		}

		return EIC, nil

	case srcIsChild && dstIsSelf:
		if src.Mode() != Output || dst.Mode() != Output {
			return EOC, c.polarityError(src, dst, "external output "+
				"couplings run from a child output to a parent output")
		}

		return EOC, nil

	default:
		return IC, &InvalidCouplingError{
			Src:    src.FullName(),
			Dst:    dst.FullName(),
			Reason: "ports do not belong to " + c.name + " or its children",
		}
	}
}

func (c *CoupledModel) polarityError(src, dst *Port, reason string) error {
	return &InvalidCouplingError{
		Src:    src.FullName(),
		Dst:    dst.FullName(),
		Reason: reason,
	}
}

func (c *CoupledModel) isChild(m Model) bool {
	return c.childIndex[m.Name()] == m && m.Parent() == c
}

func (c *CoupledModel) hasCoupling(src, dst *Port) bool {
	for _, cpl := range c.bySrc[src] {
		if cpl.Dst == dst {
			return true
		}
	}

	return false
}

// AttachInput installs the input passthrough parent port -> child port.
func (c *CoupledModel) AttachInput(parentPort, childPort *Port) error {
	return c.Attach(parentPort, childPort)
}

// AttachOutput installs the output passthrough child port -> parent port.
func (c *CoupledModel) AttachOutput(childPort, parentPort *Port) error {
	return c.Attach(childPort, parentPort)
}

// CouplingsFrom returns the couplings whose source is the given port, in
// attachment order.
func (c *CoupledModel) CouplingsFrom(src *Port) []*Coupling {
	return c.bySrc[src]
}

// InternalCouplings returns the child-to-child couplings.
func (c *CoupledModel) InternalCouplings() []*Coupling { return c.internal }

// ExternalInputCouplings returns the parent-input-to-child couplings.
func (c *CoupledModel) ExternalInputCouplings() []*Coupling {
	return c.externalInputs
}

// ExternalOutputCouplings returns the child-to-parent-output couplings.
func (c *CoupledModel) ExternalOutputCouplings() []*Coupling {
	return c.externalOutputs
}

// SetPreferredEventSet declares the event set discipline the simulation
// uses for this model's coordinator unless the caller overrides it.
func (c *CoupledModel) SetPreferredEventSet(k eventset.Kind) {
	c.preferred = k
	c.hasPreferred = true
}

// PreferredEventSet returns the declared discipline, if any.
func (c *CoupledModel) PreferredEventSet() (eventset.Kind, bool) {
	return c.preferred, c.hasPreferred
}
