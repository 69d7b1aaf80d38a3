package main

import (
	"fmt"
	"os"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion string

func main() {
	setupLogging(os.Stderr)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
