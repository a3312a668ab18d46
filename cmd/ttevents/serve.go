package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/tiktok-events-service/internal/config"
	"github.com/PratikDhanave/tiktok-events-service/internal/cookies"
	"github.com/PratikDhanave/tiktok-events-service/internal/httpserver"
	"github.com/PratikDhanave/tiktok-events-service/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE:  serve,
	}
}

// serve boots the service: config → DB → schema → optional Redis → HTTP server.
func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	var visitors *cookies.VisitorStore
	if cfg.RedisURL != "" {
		rdb, err := cookies.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		visitors = cookies.NewVisitorStore(rdb, cfg.VisitorTTL)
		if err := visitors.Ping(ctx); err != nil {
			return err
		}
		log.Println("visitor cookie store enabled")
	}

	router := httpserver.NewRouter(cfg, db, visitors)

	log.Printf("server started on %s", cfg.ListenAddr)
	return router.Run(cfg.ListenAddr)
}
