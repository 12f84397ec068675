// Command bpetrain trains a byte pair encoding vocabulary from one or more
// input files and writes the resulting merge list and vocabulary to disk.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bpetrain/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args, sigCh))
}
