package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/cultra/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)
		os.Exit(err.Code)
	}
}
