package main

import (
	"fmt"
	"os"

	"github.com/ginty-lab/ephus/internal/cli"
	"github.com/ginty-lab/ephus/internal/fsutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	deps := &cli.Dependencies{FS: fsutil.OSFileSystem{}}
	return cli.NewRootCmd(deps).Execute()
}
