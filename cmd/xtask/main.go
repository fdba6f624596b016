// Command xtask bootstraps the custom BPF toolchain and builds the project
// with it. It is normally invoked as `cargo xtask <command>`.
package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/u128bpf/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
