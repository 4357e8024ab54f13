package main

import (
	"flag"
	"fmt"
	"log"

	"detectlab/internal/config"
	"detectlab/internal/repository/sqlite"
	"detectlab/internal/service/index"
)

func main() {
	cfg := config.Load()

	reportsDir := flag.String("reports", cfg.ReportDirectory, "Directory containing report files")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Indexing reports from %s into database %s\n", *reportsDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	result, err := index.Directory(*reportsDir, sqlite.NewReportRepository(db))
	if err != nil {
		log.Fatalf("Failed to index reports: %v", err)
	}

	for _, name := range result.Skipped {
		log.Printf("⚠️  Skipping %s: not a readable report", name)
	}

	if result.Indexed == 0 {
		fmt.Printf("No new reports found (%d already indexed)\n", result.Existing)
		return
	}

	fmt.Printf("✅ Successfully indexed %d reports (%d already indexed, %d skipped)\n",
		result.Indexed, result.Existing, len(result.Skipped))
}
