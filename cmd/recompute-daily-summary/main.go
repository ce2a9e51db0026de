package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
)

func main() {
	companyID := flag.String("company-id", "", "Optional: recompute only one company. If empty, recomputes all companies.")
	from := flag.String("from", "", "Start date (YYYY-MM-DD). Defaults to 30 days ago.")
	to := flag.String("to", "", "End date (YYYY-MM-DD). Defaults to today (UTC).")
	dryRun := flag.Bool("dry-run", false, "Only count rows whose derived fields are out of date")
	flag.Parse()

	// Explicit DB connect (config does not connect in init()).
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	end, err := utils.ParseDate(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
		os.Exit(1)
	}
	start := end.AddDate(0, 0, -30)
	if strings.TrimSpace(*from) != "" {
		if start, err = utils.ParseDate(*from); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := utils.SetUsernameInContext(context.Background(), "RecomputeDailySummary")
	fmt.Printf("Recomputing production_daily_summaries company=%q from=%s to=%s dry_run=%t\n",
		strings.TrimSpace(*companyID), start.Format(time.DateOnly), end.Format(time.DateOnly), *dryRun)

	changed, err := models.RecomputeDailySummaries(ctx, strings.TrimSpace(*companyID), start, end, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute failed after %d rows: %v\n", changed, err)
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("%d rows are out of date\n", changed)
		return
	}
	fmt.Printf("Recompute complete: %d rows updated\n", changed)
}
