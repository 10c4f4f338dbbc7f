package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/scholarhub/scholarhub/internal/dashboard/app"
)

func main() {
	// Optional: local development convenience, ignored when absent.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
