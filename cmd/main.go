package main

import (
	"os"

	"github.com/soundprediction/contradict/cmd/contradict"
)

func main() {
	if err := contradict.Execute(); err != nil {
		os.Exit(1)
	}
}
