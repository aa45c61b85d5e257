package fiber

import (
	"bytes"
	"fmt"
	"testing"

	"euphoria.io/scope"
	. "github.com/smartystreets/goconvey/convey"

	"euphoria.io/fiber/stack"
)

func testThread(t *testing.T) *Thread {
	th, err := AttachThread()
	if err != nil {
		t.Fatal(err)
	}
	return th
}

func mustStack(t *testing.T) *stack.Stack {
	stk, err := stack.Allocate(stack.DefaultSize)
	if err != nil {
		t.Fatal(err)
	}
	return stk
}

func TestThreadCursor(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("The root context is current at attach time", t, func() {
		So(th.Current(), ShouldEqual, th.Root())
		So(th.Root().State(), ShouldEqual, Running)
		So(th.Root().ID(), ShouldNotEqual, ID(0))
	})

	Convey("The cursor follows every switch", t, func() {
		ctx := scope.New()
		c, err := New(th)
		So(err, ShouldBeNil)
		So(c.State(), ShouldEqual, Unbootstrapped)

		var insideCursor *Context
		err = c.Bootstrap(ctx, func(c *Context) {
			insideCursor = th.Current()
			c.Suspend()
		}, mustStack(t))
		So(err, ShouldBeNil)

		So(insideCursor, ShouldEqual, c)
		So(th.Current(), ShouldEqual, th.Root())
	})
}

func TestRoundTrip(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("Execution continues exactly after the suspend point", t, func() {
		ctx := scope.New()
		c, err := New(th)
		So(err, ShouldBeNil)

		counter := 0
		So(c.Bootstrap(ctx, func(c *Context) {
			for {
				counter++
				c.Suspend()
			}
		}, mustStack(t)), ShouldBeNil)

		// Bootstrap runs the entry up to its first suspend.
		So(counter, ShouldEqual, 1)

		for i := 2; i <= 10; i++ {
			c.Resume()
			So(counter, ShouldEqual, i)
		}
		So(c.State(), ShouldEqual, Suspended)
	})
}

func TestChain(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("Control returns to the resumer with its state intact", t, func() {
		ctx := scope.New()
		a, err := New(th)
		So(err, ShouldBeNil)

		local := 42
		So(a.Bootstrap(ctx, func(a *Context) {
			scratch := 0
			for {
				scratch += 1000
				a.Suspend()
			}
		}, mustStack(t)), ShouldBeNil)

		a.Resume()
		a.Resume()
		So(local, ShouldEqual, 42)
		So(th.Current(), ShouldEqual, th.Root())
	})

	Convey("The link is rebound to whoever resumes", t, func() {
		ctx := scope.New()
		trace := []string{}

		y, err := New(th)
		So(err, ShouldBeNil)
		So(y.Bootstrap(ctx, func(y *Context) {
			for {
				trace = append(trace, "y")
				y.Suspend()
			}
		}, mustStack(t)), ShouldBeNil)

		x, err := New(th)
		So(err, ShouldBeNil)
		So(x.Bootstrap(ctx, func(x *Context) {
			for {
				trace = append(trace, "x:before")
				// Resume y from x: y's suspend must return here,
				// not to the root.
				y.Resume()
				trace = append(trace, "x:after")
				x.Suspend()
			}
		}, mustStack(t)), ShouldBeNil)

		So(trace, ShouldResemble, []string{"y", "x:before", "y", "x:after"})
		So(y.link, ShouldEqual, x)

		// Resuming y from the root rebinds the link again.
		y.Resume()
		So(y.link, ShouldEqual, th.Root())
		So(trace, ShouldResemble, []string{"y", "x:before", "y", "x:after", "y"})
	})
}

func TestExclusivity(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("At most one context runs at any observation point", t, func() {
		ctx := scope.New()
		contexts := []*Context{th.Root()}

		running := func() int {
			n := 0
			for _, c := range contexts {
				if c.State() == Running {
					n++
				}
			}
			return n
		}

		violations := 0
		observe := func() {
			if running() != 1 {
				violations++
			}
		}

		for i := 0; i < 3; i++ {
			c, err := New(th)
			So(err, ShouldBeNil)
			contexts = append(contexts, c)
			So(c.Bootstrap(ctx, func(c *Context) {
				for {
					observe()
					c.Suspend()
				}
			}, mustStack(t)), ShouldBeNil)
		}

		for i := 0; i < 12; i++ {
			observe()
			contexts[1+i%3].Resume()
		}
		observe()

		So(violations, ShouldEqual, 0)
	})
}

func TestTermination(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("Terminate is absorbing and resume is rejected after it", t, func() {
		ctx := scope.New()
		c, err := New(th)
		So(err, ShouldBeNil)

		stk := mustStack(t)
		So(c.Bootstrap(ctx, func(c *Context) {
			c.Suspend()
			c.Terminate()
			panic("unreachable after terminate")
		}, stk), ShouldBeNil)

		So(c.State(), ShouldEqual, Suspended)
		c.Resume()
		So(c.State(), ShouldEqual, Terminated)
		So(stk.Released(), ShouldBeTrue)
		So(func() { c.Resume() }, ShouldPanic)
	})

	Convey("An entry function returning terminates implicitly", t, func() {
		ctx := scope.New()
		c, err := New(th)
		So(err, ShouldBeNil)

		stk := mustStack(t)
		So(c.Bootstrap(ctx, func(c *Context) {}, stk), ShouldBeNil)
		So(c.State(), ShouldEqual, Terminated)
		So(stk.Released(), ShouldBeTrue)
		So(th.Current(), ShouldEqual, th.Root())
	})
}

func TestFaultContainment(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("A fault in the entry cannot cross the switch boundary", t, func() {
		buf := &bytes.Buffer{}
		ctx := LoggingContext(scope.New(), buf, "[test] ")

		c, err := New(th)
		So(err, ShouldBeNil)

		So(func() {
			So(c.Bootstrap(ctx, func(c *Context) {
				panic("kaboom")
			}, mustStack(t)), ShouldBeNil)
		}, ShouldNotPanic)

		So(c.State(), ShouldEqual, Terminated)
		So(buf.String(), ShouldContainSubstring, "contained fault")
		So(buf.String(), ShouldContainSubstring, "kaboom")
		So(th.Current(), ShouldEqual, th.Root())
	})
}

func TestSingleFiberScenario(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("A bootstrapped fiber emits exactly one line and no more", t, func() {
		ctx := scope.New()
		buf := &bytes.Buffer{}

		c, err := New(th)
		So(err, ShouldBeNil)
		So(c.Bootstrap(ctx, func(c *Context) {
			fmt.Fprintln(buf, "hello from a fiber")
			c.Suspend()
		}, mustStack(t)), ShouldBeNil)

		So(buf.String(), ShouldEqual, "hello from a fiber\n")
	})
}

func TestContractViolations(t *testing.T) {
	th := testThread(t)
	defer th.Detach()

	Convey("Misuse of the state machine is rejected loudly", t, func() {
		ctx := scope.New()

		c, err := New(th)
		So(err, ShouldBeNil)

		So(func() { c.Resume() }, ShouldPanic)
		So(func() { th.Root().Suspend() }, ShouldPanic)
		So(func() { c.Bootstrap(ctx, nil, mustStack(t)) }, ShouldPanic)

		So(c.Bootstrap(ctx, func(c *Context) {
			for {
				c.Suspend()
			}
		}, mustStack(t)), ShouldBeNil)

		So(func() { c.Bootstrap(ctx, func(*Context) {}, mustStack(t)) }, ShouldPanic)
	})
}
