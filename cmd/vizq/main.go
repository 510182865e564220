// Command vizq loads dashboard definitions and inspects the queries built
// from them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/vizq/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// Commands report their own ExitErrors; anything else is a cobra
	// argument or flag error.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
