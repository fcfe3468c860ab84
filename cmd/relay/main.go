package main

import (
	"log"

	"github.com/quokkahq/tokenforge/internal/relay"
)

func main() {
	cfg, err := relay.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := relay.NewServer(cfg).Run(); err != nil {
		log.Fatalf("relay error: %v", err)
	}
}
