package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/identity"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := identity.NewApp(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
