package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/turnbid/go/internal/archive"
	"github.com/mcdev12/turnbid/go/internal/dbconfig"
)

// Creates the results archive tables and reports how many auctions are
// already archived.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, archive.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	var archived int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM auction_results`).Scan(&archived); err != nil {
		fmt.Fprintf(os.Stderr, "count results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("archive schema ready on %s/%s: %d auctions archived\n", cfg.Host, cfg.Database, archived)
}
