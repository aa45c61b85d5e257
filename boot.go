package fiber

import (
	"context"
	"encoding/binary"
	"runtime/pprof"
	"sync"

	"euphoria.io/scope"

	"euphoria.io/fiber/stack"
)

// The boot frame is the initial activation record laid into the top
// of a fiber's stack block. The bootstrap facility passes only
// fixed-width word-sized arguments to the entry trampoline, so the
// context handle is split into two 32-bit words before bootstrap and
// reassembled inside the trampoline. Words are stored little-endian
// at the top of the block; the base alignment guarantees the frame's
// placement.
//
// Layout, from the top of the block downward:
//
//	[top-16, top-8)  magic
//	[top-8,  top-4)  context handle, low word
//	[top-4,  top)    context handle, high word
const bootFrameSize = 16

const bootMagic = 0x66696265726d6167 // "fibermag"

// bootRegistry maps a pending handle to its context until the
// trampoline redeems it. The stack block carries only the integer
// handle, never a pointer, so the runtime's pointer rules are
// undisturbed by the round trip through raw bytes.
var bootRegistry = struct {
	sync.Mutex
	m map[uint64]*Context
}{m: map[uint64]*Context{}}

func (c *Context) pushBootFrame(stk *stack.Stack) error {
	b := stk.Bytes()
	if len(b) < bootFrameSize {
		return ErrStackTooSmall
	}
	handle := uint64(c.id)
	bootRegistry.Lock()
	bootRegistry.m[handle] = c
	bootRegistry.Unlock()
	lo, hi := splitWords(handle)
	top := len(b)
	binary.LittleEndian.PutUint64(b[top-16:], bootMagic)
	binary.LittleEndian.PutUint32(b[top-8:], lo)
	binary.LittleEndian.PutUint32(b[top-4:], hi)
	return nil
}

func popBootFrame(stk *stack.Stack) *Context {
	b := stk.Bytes()
	top := len(b)
	if top < bootFrameSize || binary.LittleEndian.Uint64(b[top-16:]) != bootMagic {
		panic("fiber: stack has no boot frame")
	}
	lo := binary.LittleEndian.Uint32(b[top-8:])
	hi := binary.LittleEndian.Uint32(b[top-4:])
	handle := joinWords(lo, hi)
	bootRegistry.Lock()
	c, ok := bootRegistry.m[handle]
	delete(bootRegistry.m, handle)
	bootRegistry.Unlock()
	if !ok {
		panic("fiber: boot frame was already redeemed")
	}
	return c
}

func splitWords(handle uint64) (lo, hi uint32) {
	return uint32(handle), uint32(handle >> 32)
}

func joinWords(lo, hi uint32) uint64 {
	return uint64(lo) | uint64(hi)<<32
}

// trampoline is the outermost frame of every fiber. It redeems the
// context handle from the boot frame, marks the goroutine for
// diagnostics, and contains any fault raised by the entry function:
// a panic must never cross a switch boundary, because there is no
// continuous stack for an unwinder to walk across suspended contexts.
func trampoline(ctx scope.Context, stk *stack.Stack, entry Entry) {
	c := popBootFrame(stk)

	// Best-effort: tag profiler samples with the fiber's identity.
	// There is no caller above this frame for tools to walk to.
	pprof.SetGoroutineLabels(pprof.WithLabels(
		context.Background(), pprof.Labels("fiber", c.id.String())))

	defer func() {
		if r := recover(); r != nil {
			Logger(ctx).Printf("fiber %s: contained fault: %v", c.id, r)
		}
		if c.state != Terminated {
			c.finish()
		}
	}()

	entry(c)
}
