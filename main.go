package main

import (
	"os"

	"github.com/martinemde/redline/cmd"
)

func main() {
	logger := cmd.GetLogger()
	defer func() {
		if err := logger.Close(); err != nil {
			os.Stderr.WriteString("error closing logger: " + err.Error() + "\n")
		}
	}()

	if err := cmd.Execute(); err != nil {
		logger.Logf("run failed: %v", err)
		os.Exit(1)
	}
}
