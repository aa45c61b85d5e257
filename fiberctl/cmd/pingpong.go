package cmd

import (
	"flag"
	"os"

	"euphoria.io/scope"

	"euphoria.io/fiber/fiberctl/pingpong"
)

func init() {
	register("pingpong", &pingpongCmd{})
}

type pingpongCmd struct {
	addr      string
	rounds    int
	stackSize int
}

func (pingpongCmd) desc() string {
	return "drive two fibers round-robin, alternating ping and pong"
}

func (pingpongCmd) usage() string {
	return "pingpong [--http=<interface:port>] [--rounds=N] [--stack-size=BYTES]"
}

func (pingpongCmd) longdesc() string {
	return `
	Bootstrap two fibers, one emitting "ping" and one emitting "pong",
	and resume them round-robin. With --rounds=0 the loop runs until
	interrupted. Pass --http to serve /metrics and /fibers while the
	loop runs.
`[1:]
}

func (cmd *pingpongCmd) flags() *flag.FlagSet {
	flags := flag.NewFlagSet("pingpong", flag.ExitOnError)
	flags.StringVar(&cmd.addr, "http", "", "address to serve metrics on")
	flags.IntVar(&cmd.rounds, "rounds", 0, "emissions per fiber; 0 to run forever")
	flags.IntVar(&cmd.stackSize, "stack-size", 0, "fiber stack size in bytes")
	return flags
}

func (cmd *pingpongCmd) run(ctx scope.Context, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	if cmd.addr == "" {
		cmd.addr = cfg.HTTP.Listen
	}
	if cmd.rounds == 0 {
		cmd.rounds = cfg.Fiber.Rounds
	}
	if cmd.stackSize == 0 {
		cmd.stackSize = cfg.Fiber.StackSize
	}

	if cmd.addr != "" {
		ctx.WaitGroup().Add(1)
		go pingpong.Serve(ctx, cmd.addr)
	}

	return pingpong.Loop(ctx, os.Stdout, cmd.rounds, cmd.stackSize, "ping", "pong")
}
