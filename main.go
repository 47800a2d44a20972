package main

import (
	"github.com/replaykit/replay-cli/cmd"

	// Registers the macOS provider via init().
	_ "github.com/replaykit/replay-cli/internal/platform/darwin"
)

func main() {
	cmd.Execute()
}
