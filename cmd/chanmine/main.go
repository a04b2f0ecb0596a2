package main

import (
	"os"

	"chanmine/cmd/chanmine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.OutputError("%v", err)
		os.Exit(1)
	}
}
