// hubsync is the command-line client for the Ivoire Hub sync stack.
package main

import (
	"fmt"
	"os"

	"github.com/ivoirehub/hubsync/cmd/hubsync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
