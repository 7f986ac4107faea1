package main

import (
	"os"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/cli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	os.Exit(cli.Execute(Version, BuildDate))
}
