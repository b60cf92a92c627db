package main

import (
	"fmt"
	"os"

	"github.com/dashpay/platform-sub039/cmd/platform/launcher"
)

func main() {
	if err := launcher.Launch(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
