package main

import (
	"log"
	"net/http"

	"sciflow/internal/api"
	"sciflow/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("sciflow api listening on %s registry=%s", cfg.APIAddr, cfg.RegistryBaseURL)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
