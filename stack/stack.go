// Package stack allocates the raw memory blocks that back fibers.
//
// Each block is aligned to the platform ABI requirement and owned
// exclusively by the execution context it backs. Blocks are never
// shared and never resized; they are released exactly once, when the
// owning context is discarded.
package stack

import (
	"fmt"
	"unsafe"
)

const (
	// Alignment is the stack alignment required by the platform ABI
	// (16 bytes on x86-64 and arm64). It must hold for the lifetime
	// of the block.
	Alignment = 16

	// PageSize is the granularity stacks are usually sized in.
	PageSize = 4096

	// DefaultSize is the reference stack size of four pages.
	DefaultSize = 4 * PageSize
)

var (
	ErrOutOfMemory      = fmt.Errorf("out of memory")
	ErrInvalidAlignment = fmt.Errorf("invalid alignment")
)

// poison is stamped over released blocks so that use-after-release
// shows up as garbage rather than stale-but-plausible data.
const poison = 0xa5

// Stack is an owned, fixed-size, aligned block of raw memory.
type Stack struct {
	raw      []byte // underlying allocation, over-reserved for alignment
	mem      []byte // aligned window of raw
	released bool
}

// Allocate returns a block of the requested size aligned to Alignment.
func Allocate(size int) (*Stack, error) {
	return AllocateAligned(size, Alignment)
}

// AllocateAligned returns a block of the requested size whose base
// address is a multiple of align. align must be a positive power of
// two; anything else fails with ErrInvalidAlignment. Allocation
// failure surfaces as ErrOutOfMemory. No minimum viable stack size is
// enforced here; that is the caller's concern.
func AllocateAligned(size, align int) (s *Stack, err error) {
	if align <= 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("%s: %d (allocating %d bytes)", ErrInvalidAlignment, align, size)
	}
	if size < 0 {
		return nil, fmt.Errorf("%s: negative size %d", ErrOutOfMemory, size)
	}

	// The runtime panics rather than returning an error when a slice
	// can't be made. Contain that and surface it as our own condition.
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("%s: %d bytes: %v", ErrOutOfMemory, size, r)
		}
	}()

	raw := make([]byte, size+align)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align-1)); rem != 0 {
		off = align - rem
	}
	return &Stack{raw: raw, mem: raw[off : off+size : off+size]}, nil
}

// Base returns the address of the lowest byte of the block. It is
// always a multiple of the requested alignment.
func (s *Stack) Base() uintptr {
	if len(s.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s.mem[0]))
}

// Size returns the usable length of the block in bytes.
func (s *Stack) Size() int { return len(s.mem) }

// Bytes exposes the block for the owning context to lay frames in.
func (s *Stack) Bytes() []byte {
	if s.released {
		panic("stack: use after release")
	}
	return s.mem
}

// Released reports whether the block has been returned.
func (s *Stack) Released() bool { return s.released }

// Release returns the block. Calling it more than once on the same
// Stack is a contract violation and panics rather than corrupting a
// reused block.
func (s *Stack) Release() {
	if s.released {
		panic("stack: double release")
	}
	for i := range s.mem {
		s.mem[i] = poison
	}
	s.released = true
	s.mem = nil
	s.raw = nil
}
