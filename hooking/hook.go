// Package hooking provides the observation machinery of the kernel. Hooks
// attach to hookable domains (models, ports, simulations) and are invoked
// synchronously between the phases of a simulation step. A failing hook is
// contained: it is reported and the simulation continues.
package hooking

import "log"

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// Positions triggered by the simulation lifecycle.
var (
	HookPosPreInit        = &HookPos{Name: "PreInit"}
	HookPosPostInit       = &HookPos{Name: "PostInit"}
	HookPosPreSimulation  = &HookPos{Name: "PreSimulation"}
	HookPosPostSimulation = &HookPos{Name: "PostSimulation"}
	HookPosPostAbort      = &HookPos{Name: "PostAbort"}
	HookPosPreStep        = &HookPos{Name: "PreStep"}
	HookPosPostStep       = &HookPos{Name: "PostStep"}
)

// HookPosTransition marks the completion of a model transition. The hook
// context detail carries a TransitionInfo.
var HookPosTransition = &HookPos{Name: "Transition"}

// HookPosPortOutput marks a value emitted on an observable output port.
var HookPosPortOutput = &HookPos{Name: "PortOutput"}

// HookCtx is the context that holds all the information about the site that
// a hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accepts Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other types that
// implement the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the registered Hooks. A hook that panics must not
// corrupt the simulation state, so the panic is reported and the remaining
// hooks still run.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		invokeContained(hook, ctx)
	}
}

func invokeContained(hook Hook, ctx HookCtx) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("hook at %s failed: %v", ctx.Pos.Name, r)
		}
	}()

	hook.Func(ctx)
}
