// Command payrun exports payroll reports from the salary database to CSV.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/salarysys/payrun/internal/cli"
	"github.com/salarysys/payrun/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code. SIGINT and SIGTERM
// cancel the command context, which stops an export between batches.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return cli.ExitCode(err)
}
