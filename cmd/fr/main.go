package main

import (
	"fmt"
	"os"

	"github.com/joshsegall/frame-sub002/internal/frame/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
