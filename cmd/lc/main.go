package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/cli"
	"github.com/TwoAbove/lc/internal/utils"
)

// main is the entry point for the lc command.
func main() {
	loggerInstance := utils.NewApplicationLogger(os.Stderr, false)
	defer func() { _ = loggerInstance.Sync() }()
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage, zap.Error(applicationExecutionError))
	}
}
