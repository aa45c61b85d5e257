// Package fiber implements a minimal stackful switching primitive:
// independently-stacked execution contexts that suspend and resume
// each other cooperatively, with no kernel involvement and no
// preemption.
//
// A Context is bootstrapped exactly once onto a freshly allocated
// stack block; after that, control moves between contexts through
// cheap Resume/Suspend transfers. At any instant exactly one context
// per Thread is running; the live contexts form a LIFO chain of "who
// resumed whom", rooted at the thread's original control flow.
package fiber

import (
	"fmt"
	"runtime"

	"euphoria.io/scope"

	"euphoria.io/fiber/stack"
)

// State tracks a context through its lifecycle. Terminated is
// absorbing: a terminated context must never be resumed again.
type State int32

const (
	Unbootstrapped State = iota
	Running
	Suspended
	Terminated
)

func (s State) String() string {
	switch s {
	case Unbootstrapped:
		return "unbootstrapped"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Entry is the function a fiber begins executing on its fresh stack.
// It either loops {unit of work; Suspend} forever, or does its work
// once and returns (or calls Terminate). A fault raised by the work
// must not cross the switch boundary; the trampoline contains it.
type Entry func(*Context)

// Thread models one OS thread's worth of cooperatively scheduled
// contexts: the implicit root context for the thread's original
// control flow, plus the cursor naming whichever context currently
// holds control. Only the running context ever writes the cursor, so
// no locking is needed; mutual exclusion is structural.
type Thread struct {
	root    *Context
	current *Context
}

// AttachThread pins the calling goroutine to its OS thread and
// returns a Thread whose root context represents the caller's own
// control flow. The root starts out running and is the initial value
// of the cursor.
func AttachThread() (*Thread, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	runtime.LockOSThread()
	t := &Thread{}
	t.root = &Context{
		id:    id,
		t:     t,
		state: Running,
		gate:  make(chan struct{}),
	}
	t.current = t.root
	return t, nil
}

// Detach undoes AttachThread. It may only be called from the root
// context, with every fiber terminated.
func (t *Thread) Detach() {
	if t.current != t.root {
		panic("fiber: detach from non-root context")
	}
	runtime.UnlockOSThread()
}

// Current returns the context currently holding control.
func (t *Thread) Current() *Context { return t.current }

// Root returns the implicit context for the thread's original
// control flow.
func (t *Thread) Root() *Context { return t.root }

// Context is a single suspendable point of control: an owned stack
// block plus enough saved state to resume execution exactly where it
// suspended. The link field is a non-owning back-reference to the
// context that most recently resumed this one; it is rebound on every
// resume, since a fiber may be resumed by different callers over its
// life.
type Context struct {
	id    ID
	t     *Thread
	state State
	link  *Context
	stack *stack.Stack

	// gate is the saved-state slot: a parked context blocks
	// receiving on its own gate, and a transfer wakes the target by
	// sending on the target's gate. Channel ordering gives the
	// happens-before edge between the outgoing and incoming sides of
	// a switch.
	gate chan struct{}
}

// New returns an unbootstrapped context belonging to t.
func New(t *Thread) (*Context, error) {
	id, err := newID()
	if err != nil {
		return nil, systemError("fiber: minting context id", err)
	}
	return &Context{id: id, t: t, gate: make(chan struct{})}, nil
}

// ID returns the context's diagnostic identifier.
func (c *Context) ID() ID { return c.id }

// State returns the context's position in its lifecycle.
func (c *Context) State() State { return c.state }

// Bootstrap performs the one-time expensive transfer onto the given
// stack: it lays a boot frame describing the entry point into the top
// of the block, records the caller as this context's link, saves the
// caller's resumable state, and moves control to entry. It returns
// once the new fiber first suspends or terminates.
//
// The stack becomes owned by this context and is released when the
// context terminates. Platform failures surface as an error, except
// for descriptor-domain errors, which abort the process by policy.
func (c *Context) Bootstrap(ctx scope.Context, entry Entry, stk *stack.Stack) error {
	caller := c.t.current
	switch {
	case c.state != Unbootstrapped:
		panic(fmt.Sprintf("fiber: bootstrap of %s context %s", c.state, c.id))
	case caller.state != Running:
		panic("fiber: bootstrap from non-running context")
	case entry == nil:
		panic("fiber: bootstrap with nil entry")
	}
	if stk == nil {
		return systemError("fiber: bootstrap", fmt.Errorf("no stack"))
	}
	if err := c.pushBootFrame(stk); err != nil {
		return systemError("fiber: bootstrap", err)
	}

	c.stack = stk
	c.link = caller
	caller.state = Suspended
	c.state = Running
	c.t.current = c

	// The boot frame in the stack block is the only way the new
	// fiber learns which context it is.
	go trampoline(ctx, stk, entry)

	<-caller.gate
	return nil
}

// Resume moves control to this context, which must be suspended. The
// caller becomes suspended and this context's link is rebound to the
// caller. Resume returns when this context next suspends or
// terminates. No stack or argument setup is repeated; only saved
// control state is exchanged.
func (c *Context) Resume() {
	caller := c.t.current
	switch c.state {
	case Terminated:
		panic(fmt.Sprintf("fiber: resume of terminated context %s", c.id))
	case Unbootstrapped:
		panic(fmt.Sprintf("fiber: resume of unbootstrapped context %s", c.id))
	case Running:
		panic(fmt.Sprintf("fiber: resume of running context %s", c.id))
	}
	if caller.state != Running {
		panic("fiber: resume from non-running context")
	}

	c.link = caller
	caller.state = Suspended
	c.state = Running
	c.t.current = c

	c.gate <- struct{}{}
	<-caller.gate
}

// Suspend hands control back to this context's link, which resumes
// exactly after its own most recent Resume or Bootstrap call.
// Suspend returns when some context next resumes this one.
func (c *Context) Suspend() {
	if c.t.current != c || c.state != Running {
		panic(fmt.Sprintf("fiber: suspend of %s context %s", c.state, c.id))
	}
	to := c.link
	if to == nil {
		panic("fiber: suspend of root context")
	}

	c.state = Suspended
	to.state = Running
	c.t.current = to

	to.gate <- struct{}{}
	<-c.gate
}

// Terminate moves control to the link like Suspend, but saves nothing
// for a future resume and releases the owned stack. It never returns.
// Entry functions that return normally terminate implicitly.
func (c *Context) Terminate() {
	c.finish()
	runtime.Goexit()
}

// finish is the shared tail of explicit Terminate, implicit
// entry-return termination, and fault containment.
func (c *Context) finish() {
	if c.t.current != c || c.state != Running {
		panic(fmt.Sprintf("fiber: terminate of %s context %s", c.state, c.id))
	}
	to := c.link
	if to == nil {
		panic("fiber: terminate of root context")
	}

	c.state = Terminated
	if c.stack != nil {
		c.stack.Release()
		c.stack = nil
	}
	to.state = Running
	c.t.current = to

	to.gate <- struct{}{}
}
