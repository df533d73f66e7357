// Command fedunion compiles federated query requests into Trino UNION ALL
// statements and serves them over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/fedunion/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()

	// Commands report their own failures and return an ExitError. Anything
	// else (bad flags, bad arguments) comes from cobra and is printed here.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
