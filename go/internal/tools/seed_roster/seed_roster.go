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

// Seeds the players table from a roster CSV exported from the league
// spreadsheet. Columns: id, name, team, overall, salary.
func main() {
	ctx := context.Background()

	path := "go/internal/assets/rosters.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open roster csv: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read roster csv: %v\n", err)
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
		if i == 0 && rec[0] == "id" {
			continue // header row
		}
		if len(rec) < 5 {
			errs++
			continue
		}
		total++

		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			errs++
			continue
		}
		overall, err := strconv.Atoi(rec[3])
		if err != nil {
			errs++
			continue
		}
		salary, err := strconv.Atoi(rec[4])
		if err != nil {
			errs++
			continue
		}

		tag, err := pool.Exec(ctx, `
            INSERT INTO players (id, name, team, overall, salary)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (id) DO NOTHING
        `, id, rec[1], rec[2], overall, salary)
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
		"Roster seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
