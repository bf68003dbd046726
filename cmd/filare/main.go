// Command filare builds wire harness BOMs from YAML documents.
package main

import (
	"os"

	"github.com/roach88/filare/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
