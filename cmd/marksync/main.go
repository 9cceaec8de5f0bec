package main

import (
	"log"

	"github.com/nsmith5/marksync/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ marksync failed to start: %v", err)
	}
}
