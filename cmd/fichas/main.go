// Command fichas computes and stores technical sheets for crops and serves
// them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/fichas/internal/cli"
	"github.com/roach88/fichas/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
