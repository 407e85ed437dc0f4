package main

import (
	"fmt"
	"os"

	"github.com/nesrien2002/livekit-voice-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
