package sim

import "fmt"

// InvalidPortHostError reports a model posting to a port it does not own.
type InvalidPortHostError struct {
	Model string
	Port  string
}

func (e *InvalidPortHostError) Error() string {
	return fmt.Sprintf("model %s cannot post to port %s of another host",
		e.Model, e.Port)
}

// NoSuchPortError reports a reference to a port name that does not exist.
type NoSuchPortError struct {
	Model string
	Port  string
}

func (e *NoSuchPortError) Error() string {
	return fmt.Sprintf("model %s has no port named %s", e.Model, e.Port)
}

// FeedbackCouplingError reports an attempt to couple a model to itself at
// the same level.
type FeedbackCouplingError struct {
	Port string
}

func (e *FeedbackCouplingError) Error() string {
	return fmt.Sprintf("coupling via port %s feeds back at the same level",
		e.Port)
}

// InvalidCouplingError reports a coupling across non-sibling boundaries or
// with the wrong polarity.
type InvalidCouplingError struct {
	Src, Dst string
	Reason   string
}

func (e *InvalidCouplingError) Error() string {
	return fmt.Sprintf("cannot couple %s to %s: %s", e.Src, e.Dst, e.Reason)
}

// UnobservablePortError reports an observer attached to an input port or to
// an output port of a non-atomic model.
type UnobservablePortError struct {
	Port string
}

func (e *UnobservablePortError) Error() string {
	return fmt.Sprintf("port %s is not observable", e.Port)
}

// InvalidStateError reports a state instance assigned to a model of a
// different class.
type InvalidStateError struct {
	Model string
	Got   string
	Want  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("model %s expects state of type %s, got %s",
		e.Model, e.Want, e.Got)
}

// InvalidProcessorError reports a model driven through a processor that does
// not own it.
type InvalidProcessorError struct {
	Model string
}

func (e *InvalidProcessorError) Error() string {
	return fmt.Sprintf("model %s is owned by another processor", e.Model)
}

// TransitionError wraps a failure raised inside a model transition. The
// kernel aborts the simulation and propagates the faulting model upward.
type TransitionError struct {
	Model string
	Cause interface{}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition of model %s failed: %v", e.Model, e.Cause)
}
