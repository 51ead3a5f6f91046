package main

import (
	"os"

	"photo-feed/internal/logging"
)

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
