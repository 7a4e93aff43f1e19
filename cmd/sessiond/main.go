package main

import (
	"fmt"
	"log"
	"net/http"

	"quantumescape/internal/api"
	"quantumescape/internal/config"
	"quantumescape/internal/db"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("[DB] DATABASE_URL is required")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[DB] Failed to connect: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("[DB] Migration failed: %v", err)
	}
	log.Println("[DB] Database connected and migrations applied")

	srv := &api.Server{Store: database}

	addr := "0.0.0.0:" + cfg.Port
	fmt.Printf("Session service listening on http://localhost:%s\n", cfg.Port)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		log.Fatal(err.Error())
	}
}
