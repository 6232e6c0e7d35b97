package hooking

import (
	"github.com/romain1189/quartz/timing"
)

// TransitionKind identifies which transition function a model went through.
type TransitionKind int

const (
	TransitionInit TransitionKind = iota
	TransitionInternal
	TransitionExternal
	TransitionConfluent
)

var transitionNames = [...]string{"init", "internal", "external", "confluent"}

func (k TransitionKind) String() string {
	if k < 0 || int(k) >= len(transitionNames) {
		return "unknown"
	}

	return transitionNames[k]
}

// TransitionInfo is delivered to observers after each model transition.
type TransitionInfo struct {
	Time       timing.TimePoint
	Transition TransitionKind
}

// An Observer receives model update notifications. For transition hooks the
// target is the model the observer was attached to; for port output hooks it
// is the value emitted on the port.
type Observer interface {
	Update(target interface{}, info TransitionInfo)
}

// ObserverHook adapts an Observer to the Hook interface so that it can be
// attached to any hookable domain.
type ObserverHook struct {
	Observer Observer
}

// Func forwards transition contexts to the wrapped observer.
func (h ObserverHook) Func(ctx HookCtx) {
	info, ok := ctx.Detail.(TransitionInfo)
	if !ok {
		return
	}

	h.Observer.Update(ctx.Item, info)
}
