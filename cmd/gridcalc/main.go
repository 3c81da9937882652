// Command gridcalc evaluates, stores and serves spreadsheets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/gridcalc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "gridcalc:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
