// Command wasmfnd serves a WebAssembly guest function over a unix socket.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wasmfnd:", err)
		os.Exit(1)
	}
}
