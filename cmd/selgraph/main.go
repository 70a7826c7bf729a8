// Command selgraph runs, serves and replays the counter application.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/selgraph/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
