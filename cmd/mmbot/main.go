package main

import (
	"os"

	"github.com/xlubecx/mmbot/cmd/mmbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
