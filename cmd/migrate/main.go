package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"hivechat/config"
	"hivechat/internal/store"
)

const usage = `
hivechat - database tool

Usage:
  migrate [command]

Commands:
  up       Apply the schema to the configured Postgres database
  status   Show database connection status
  reset    Drop all tables and re-apply the schema (DANGEROUS)

The connection is read from the same environment as the API server
(DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME).
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch flag.Arg(0) {
	case "up":
		if _, err := conn.Exec(ctx, store.Schema); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		log.Println("Schema applied")
	case "status":
		if err := conn.Ping(ctx); err != nil {
			log.Fatalf("Database unreachable: %v", err)
		}
		log.Printf("Connected to %s/%s", cfg.DBHost, cfg.DBName)
	case "reset":
		if _, err := conn.Exec(ctx, `DROP TABLE IF EXISTS attachments, messages, rooms CASCADE`); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		if _, err := conn.Exec(ctx, store.Schema); err != nil {
			log.Fatalf("Failed to re-apply schema: %v", err)
		}
		log.Println("Schema reset")
	default:
		flag.Usage()
		os.Exit(1)
	}
}
