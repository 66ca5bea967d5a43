package main

import (
	"os"

	"github.com/clearledger-systems/clearledger-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
