// Command plmctl drives the product workbench from the shell. Every command opens the
// local cache, syncs with the server when one is reachable, applies one change and saves.
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
