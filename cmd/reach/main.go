// Command reach solves region reachability for rule-driven game worlds.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reach/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
