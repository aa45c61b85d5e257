package cmd

import (
	"flag"
	"os"

	"euphoria.io/scope"

	"euphoria.io/fiber/fiberctl/pingpong"
)

func init() {
	register("single", &singleCmd{})
}

type singleCmd struct {
	stackSize int
}

func (singleCmd) desc() string {
	return "bootstrap a single fiber, print one line from its stack, and exit"
}

func (singleCmd) usage() string {
	return "single [--stack-size=BYTES]"
}

func (singleCmd) longdesc() string {
	return `
	Demonstrate the one-time bootstrap transfer alone: a single fiber
	is bootstrapped, emits one line from its own stack, and suspends.
	It is never resumed; its stack is reclaimed at process exit.
`[1:]
}

func (cmd *singleCmd) flags() *flag.FlagSet {
	flags := flag.NewFlagSet("single", flag.ExitOnError)
	flags.IntVar(&cmd.stackSize, "stack-size", 0, "fiber stack size in bytes")
	return flags
}

func (cmd *singleCmd) run(ctx scope.Context, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	if cmd.stackSize == 0 {
		cmd.stackSize = cfg.Fiber.StackSize
	}
	return pingpong.Single(ctx, os.Stdout, cmd.stackSize, "hello from a fiber")
}
