package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"factgraph/internal/errors"

	"github.com/fatih/color"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

var errorLabel = color.New(color.FgRed, color.Bold)

// printError prints err and, for coded errors, the suggested fixes.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel.Sprint("Error:"), err)

	var coded *errors.Error
	if stderrors.As(err, &coded) {
		for _, fix := range coded.SuggestedFixes {
			switch {
			case fix.Command != "":
				fmt.Fprintf(os.Stderr, "  try: %s", fix.Command)
			case fix.URL != "":
				fmt.Fprintf(os.Stderr, "  see: %s", fix.URL)
			default:
				continue
			}
			if fix.Description != "" {
				fmt.Fprintf(os.Stderr, "  (%s)", fix.Description)
			}
			fmt.Fprintln(os.Stderr)
		}
	}
}
