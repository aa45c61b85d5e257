// Package pingpong drives the two demo scenarios for the fiber core:
// the classic two-fiber ping/pong round-robin, and a single-fiber
// bootstrap that shows the one-time transfer alone.
package pingpong

import (
	"fmt"
	"io"
	"runtime"

	"euphoria.io/scope"

	"euphoria.io/fiber"
	"euphoria.io/fiber/stack"
)

// Loop bootstraps one fiber per word and resumes them round-robin.
// Each fiber emits its word once per activation. Bootstrap runs a
// fiber up to its first suspend, so every word is emitted once before
// the round-robin even starts; rounds counts total emissions per
// fiber. With rounds <= 0 the loop runs until the scope context
// terminates.
func Loop(ctx scope.Context, w io.Writer, rounds, stackSize int, words ...string) error {
	t, err := fiber.AttachThread()
	if err != nil {
		return err
	}
	defer t.Detach()

	drv := fiber.NewDriver(t)
	for _, word := range words {
		word := word
		c, err := drv.Add(ctx, func(c *fiber.Context) {
			for {
				fmt.Fprintln(w, word)
				switches.WithLabelValues(c.ID().String()).Inc()
				c.Suspend()
			}
		}, stackSize)
		if err != nil {
			return err
		}
		bootstraps.Inc()
		liveFibers.Inc()
		stackBytes.Add(float64(stackSize))
		board.add(c, word, stackSize)
	}

	// The bootstraps above already produced one emission per fiber.
	// Both the bounded and unbounded modes count every resume on the
	// status board, so the /fibers page stays live either way.
	budget := -1
	if rounds > 0 {
		budget = (rounds - 1) * len(words)
	}
	for i := 0; budget < 0 || i < budget; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !drv.Step() {
			break
		}
		board.step()
		runtime.Gosched()
	}
	return nil
}

// Single bootstraps one context whose entry emits a single line and
// suspends, then returns without resuming it again. The fiber's stack
// is reclaimed at process exit.
func Single(ctx scope.Context, w io.Writer, stackSize int, line string) error {
	t, err := fiber.AttachThread()
	if err != nil {
		return err
	}
	defer t.Detach()

	stk, err := stack.Allocate(stackSize)
	if err != nil {
		return err
	}
	c, err := fiber.New(t)
	if err != nil {
		return err
	}
	if err := c.Bootstrap(ctx, func(c *fiber.Context) {
		fmt.Fprintln(w, line)
		c.Suspend()
	}, stk); err != nil {
		return err
	}
	bootstraps.Inc()
	liveFibers.Inc()
	stackBytes.Add(float64(stackSize))
	return nil
}
