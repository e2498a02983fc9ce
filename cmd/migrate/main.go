// Command migrate prepares the database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"faithfulcity/internal/config"
	"faithfulcity/internal/database"
	"faithfulcity/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <ensure|up|families>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "ensure":
		created, err := database.EnsureDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("ensure database: %w", err)
		}
		log.Printf("database %q ready (created=%t)", cfg.DBName, created)
	case "up", "families":
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("schema migrated")
		if cmd == "families" {
			if err := seed.Families(db); err != nil {
				return fmt.Errorf("seed families: %w", err)
			}
			log.Println("built-in families merged")
		}
	default:
		return usage()
	}

	return nil
}
