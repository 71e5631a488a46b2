package main

import (
	"os"

	"github.com/mo2build/mob/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
