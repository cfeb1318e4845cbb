package main

import (
	"fmt"
	"os"

	"github.com/temirov/dirstat/internal/cli"
	"github.com/temirov/dirstat/internal/utils"
)

// main is the entry point for the dirstat command.
func main() {
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		fmt.Fprintf(os.Stderr, utils.ErrorLogFormat+"\n", applicationExecutionError)
		os.Exit(1)
	}
}
