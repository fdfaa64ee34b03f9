// Command shopstate is the command-line front end of the commerce state
// engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/shopstate/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "shopstate:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
