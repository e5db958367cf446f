// Command jvs-host is the thin CLI front end wiring the serial, protocol,
// bus and poller packages together: enumerate the bus, poll switch state,
// or report the build version.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
