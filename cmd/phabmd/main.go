package main

import (
	"os"

	"github.com/dshills/phabmd/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
