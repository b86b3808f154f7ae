package main

import "github.com/jmball/go-m1k/internal/cli"

// set via -ldflags at build time
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, buildTime)
	cli.Execute()
}
