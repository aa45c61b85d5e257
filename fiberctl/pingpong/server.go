package pingpong

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"euphoria.io/scope"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"euphoria.io/fiber"
)

// board is the status snapshot behind /fibers. The driver thread is
// the only writer of fiber state, so the board records its own copy
// of the static facts plus a step count rather than peeking at live
// contexts from the HTTP goroutine.
var board statusBoard

type fiberInfo struct {
	id        fiber.ID
	role      string
	stackSize int
}

type statusBoard struct {
	sync.Mutex
	fibers []fiberInfo
	steps  uint64
}

func (b *statusBoard) add(c *fiber.Context, role string, stackSize int) {
	b.Lock()
	b.fibers = append(b.fibers, fiberInfo{id: c.ID(), role: role, stackSize: stackSize})
	b.Unlock()
}

func (b *statusBoard) step() {
	b.Lock()
	b.steps++
	b.Unlock()
}

func (b *statusBoard) render(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	for _, f := range b.fibers {
		fmt.Fprintf(w, "fiber %s role=%s stack=%d\n", f.id, f.role, f.stackSize)
	}
	fmt.Fprintf(w, "steps: %d\n", b.steps)
}

// Serve exposes /metrics and /fibers until the scope context
// terminates.
func Serve(ctx scope.Context, addr string) {
	defer ctx.WaitGroup().Done()

	r := mux.NewRouter().StrictSlash(true)
	r.Path("/metrics").Handler(promhttp.Handler())
	r.Path("/fibers").HandlerFunc(board.render)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		ctx.Terminate(err)
		return
	}

	closed := false
	m := sync.Mutex{}
	closeListener := func() {
		m.Lock()
		if !closed {
			listener.Close()
			closed = true
		}
		m.Unlock()
	}

	// Spin off goroutine to watch ctx and close listener if shutdown requested.
	go func() {
		<-ctx.Done()
		closeListener()
	}()

	fiber.Logger(ctx).Printf("serving /metrics on %s", addr)
	if err := http.Serve(listener, r); err != nil && ctx.Alive() {
		fmt.Printf("http[%s]: %s\n", addr, err)
		ctx.Terminate(err)
	}

	closeListener()
}
