package main

import (
	"context"
	"errors"
	"os"

	"github.com/crapthings/storyboard/internal/logger"
)

var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(1)
		}
		logger.Fatal("%v", err)
	}
}
