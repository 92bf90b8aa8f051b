package main

import (
	"os"

	"github.com/opentelekomcloud-infra/giji/internal/cli"
)

// @title giji ops API
// @version 1.0
// @BasePath /
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
