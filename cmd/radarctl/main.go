package main

import (
	"fmt"
	"os"

	"github.com/i474232898/radar-archive/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
