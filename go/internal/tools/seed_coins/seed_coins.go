package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hardwood-league/commish/go/internal/dbconfig"
)

// Seeds the team_coins table with each franchise's starting balance.
// Columns: team, coins.
func main() {
	ctx := context.Background()

	path := "go/internal/assets/coins.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open coins csv: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read coins csv: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := 0, 0, 0, 0
	for i, rec := range records {
		if i == 0 && rec[0] == "team" {
			continue // header row
		}
		if len(rec) < 2 {
			errs++
			continue
		}
		total++

		coins, err := strconv.Atoi(rec[1])
		if err != nil {
			errs++
			continue
		}

		tag, err := pool.Exec(ctx, `
            INSERT INTO team_coins (team, coins_remaining)
            VALUES ($1,$2)
            ON CONFLICT (team) DO NOTHING
        `, rec[0], coins)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Coins seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
