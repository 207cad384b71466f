package main

import (
	"os"

	"github.com/hellio/hr-mailroom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
