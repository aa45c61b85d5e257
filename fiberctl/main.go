package main

import (
	"flag"

	"euphoria.io/fiber/fiberctl/cmd"
)

var Version string

func main() {
	if Version != "" {
		cmd.Version = Version
	}
	flag.Parse()
	cmd.Run(flag.Args())
}
