// Command proxhy is the module's entry point, mirroring the teacher's own
// split between a thin root main.go and a cmd/<name> package carrying the
// actual cobra command and run loop.
package main

import (
	"fmt"
	"os"

	"github.com/kbidlack/proxhy-go/cmd/proxhy"
)

func main() {
	if err := proxhy.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
