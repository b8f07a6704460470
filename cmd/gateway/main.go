package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/gateway"
	"github.com/dmitrijs2005/gatekeeper/internal/gateway/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := gateway.NewApp(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
