package main

import (
	"log"

	"sciencebindu-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("✗ %v", err)
	}
}
