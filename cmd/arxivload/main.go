package main

import (
	"os"

	"github.com/kailas-cloud/arxivsearch/cmd/arxivload/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
