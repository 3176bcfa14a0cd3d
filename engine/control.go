package engine

import "github.com/prilive-com/tgin/route"

// ControlMessage is the tagged union the admin API sends on the control
// channel (spec.md §4.7); the dispatch loop handles each synchronously.
type ControlMessage interface {
	isControlMessage()
}

// AddRoute asks the root to accept a new child at sublevel. The current
// contract (spec.md §4.7, §9 open question) places the child on the root
// regardless of Sublevel; a future version could address by depth.
type AddRoute struct {
	Spec     route.ChildSpec
	Sublevel int
}

func (AddRoute) isControlMessage() {}

// GetRoutes asks for root.Describe(), delivered on Reply. The dispatch
// loop always sends exactly one value before moving on.
type GetRoutes struct {
	Reply chan<- any
}

func (GetRoutes) isControlMessage() {}
