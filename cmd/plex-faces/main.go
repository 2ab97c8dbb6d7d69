package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"plex-faces/internal/logging"
	"plex-faces/internal/memory"
)

func main() {
	memory.ConfigureFromEnv()

	cmd := newRootCommand(newApp())
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
