package main

import (
	"os"

	"github.com/sunsplit/sunsplit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
