// Command jamc translates JAMScript syntax trees into host programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jamc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
