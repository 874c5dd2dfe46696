package main

import (
	"flag"
	"log"

	"github.com/diwanhq/diwan/internal/api"
	"github.com/diwanhq/diwan/internal/app"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	a, err := app.New(*configFile)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v\n", err)
	}
	defer a.Close()

	a.SetWebRouter(api.SetupRouter(a))

	if err := a.Run(); err != nil {
		log.Fatalf("Application error: %v\n", err)
	}
}
