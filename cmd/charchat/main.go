package main

import (
	"os"

	"charchat-client/cmd/charchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
