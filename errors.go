package fiber

import (
	"errors"
	"fmt"
	"log"
	"os"
	"syscall"
)

var ErrStackTooSmall = fmt.Errorf("stack too small for boot frame")

// exit is swapped out by tests of the abort policy.
var exit = os.Exit

// systemError applies the policy for platform failures during
// bootstrap. Descriptor-domain errors indicate corrupted process
// state and abort immediately; everything else is wrapped and
// surfaced to the bootstrapper as recoverable.
func systemError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENOTSOCK) {
		log.Printf("%s: %s", what, err)
		exit(1)
	}
	return fmt.Errorf("%s: %s", what, err)
}
