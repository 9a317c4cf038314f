// Command dqb compiles and runs schema-driven SQL requests.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/dqb/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "dqb: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
