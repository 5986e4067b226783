// Command skillswapctl is the operator tool for skillswap: it seeds Mongo
// from fixtures, runs searches in-process and probes a running server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
