package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/remindr/internal/cli"
	"github.com/okian/remindr/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "remindr: %v\n", err)
		os.Exit(1)
	}
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command tree with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "remindr: %v\n", err)
		return 1
	}
	return 0
}
