package main

import (
	"fmt"
	"os"

	"github.com/funvibe/expect/internal/config"
	"github.com/funvibe/expect/pkg/cli"
)

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if os.Getenv("EXPECT_TEST_MODE") == "1" {
		config.IsTestMode = true
	}

	cli.Main()
}
