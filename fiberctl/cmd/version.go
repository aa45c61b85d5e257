package cmd

import (
	"flag"
	"fmt"

	"euphoria.io/scope"
)

func init() {
	register("version", &versionCmd{})
}

type versionCmd struct {
}

func (versionCmd) desc() string {
	return "display fiberctl version"
}

func (versionCmd) usage() string {
	return "version"
}

func (versionCmd) longdesc() string {
	return "Display the version stamped into the fiberctl binary."
}

func (versionCmd) flags() *flag.FlagSet {
	return flag.NewFlagSet("version", flag.ExitOnError)
}

func (versionCmd) run(ctx scope.Context, args []string) error {
	fmt.Printf("fiberctl version %s\n", Version)
	return nil
}
