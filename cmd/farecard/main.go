package main

import (
	"os"

	"github.com/farecard/farecard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
