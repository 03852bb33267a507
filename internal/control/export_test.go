package control

import "context"

// PanicCommand panics when applied.
type PanicCommand struct{}

func (PanicCommand) Name() string { return "panic" }

func (PanicCommand) apply(context.Context, *Plane) (any, error) { panic("boom") }
