package fiber

import (
	"fmt"
	"runtime"

	"euphoria.io/scope"

	"euphoria.io/fiber/stack"
)

// Driver owns a fixed set of bootstrapped contexts on one thread and
// resumes them round-robin. Each resume blocks, from the driver's
// point of view, until the fiber voluntarily suspends; ordering
// between fibers is entirely the driver's resume order. The driver
// never preempts: it only observes its scope context between
// switches.
type Driver struct {
	t      *Thread
	fibers []*Context
	next   int
}

func NewDriver(t *Thread) *Driver {
	return &Driver{t: t}
}

// Add allocates a stack of the given size, bootstraps a new context
// onto it with entry, and appends it to the resume order. Per the
// bootstrap contract, entry runs immediately, up to its first
// suspend.
func (d *Driver) Add(ctx scope.Context, entry Entry, stackSize int) (*Context, error) {
	stk, err := stack.Allocate(stackSize)
	if err != nil {
		return nil, fmt.Errorf("driver: %s", err)
	}
	c, err := New(d.t)
	if err != nil {
		stk.Release()
		return nil, err
	}
	if err := c.Bootstrap(ctx, entry, stk); err != nil {
		stk.Release()
		return nil, err
	}
	d.fibers = append(d.fibers, c)
	return c, nil
}

// Fibers returns the contexts in resume order.
func (d *Driver) Fibers() []*Context { return d.fibers }

// Step resumes the next live fiber in round-robin order. It returns
// false when every fiber has terminated.
func (d *Driver) Step() bool {
	n := len(d.fibers)
	for i := 0; i < n; i++ {
		c := d.fibers[d.next]
		d.next = (d.next + 1) % n
		if c.state == Suspended {
			c.Resume()
			return true
		}
	}
	return false
}

// RunSteps advances the round-robin by at most n resumes, stopping
// early if every fiber terminates.
func (d *Driver) RunSteps(n int) {
	for i := 0; i < n; i++ {
		if !d.Step() {
			return
		}
	}
}

// Run drives the round-robin until the scope context terminates or
// every fiber has. The scope is only consulted between switches; a
// running fiber is never reclaimed out from under itself.
func (d *Driver) Run(ctx scope.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !d.Step() {
			Logger(ctx).Printf("driver: all fibers terminated")
			return nil
		}
		// The handoff only ever reschedules the driver and the
		// resumed fiber. Yield so that goroutines outside the
		// switching domain, like whoever terminates the scope, get a
		// turn even with a single P.
		runtime.Gosched()
	}
}
