// Command backfill_active rewrites NULL is_active flags to true. The API
// already reads NULL as active; the backfill makes reports and ad-hoc SQL
// agree with it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tsheet/timesheet/internal/config"
	"github.com/tsheet/timesheet/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	dryRun := flag.Bool("dry-run", false, "only count the rows that would change")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := models.Open(&cfg.Database, logger.Warn)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	tables := []struct {
		name  string
		model any
	}{
		{"profiles", &models.Profile{}},
		{"projects", &models.Project{}},
		{"memberships", &models.Membership{}},
	}

	fmt.Printf("%-12s %10s\n", "Table", "NULL rows")
	fmt.Println("-----------------------")
	for _, tbl := range tables {
		n, err := backfill(db, tbl.model, *dryRun)
		if err != nil {
			fmt.Printf("Failed to backfill %s: %v\n", tbl.name, err)
			os.Exit(1)
		}
		fmt.Printf("%-12s %10d\n", tbl.name, n)
	}

	if *dryRun {
		fmt.Println("\nDry run, nothing written.")
		return
	}
	fmt.Println("\nBackfill complete.")
}

// backfill sets is_active = true where it is NULL and returns the row count.
func backfill(db *gorm.DB, model any, dryRun bool) (int64, error) {
	if dryRun {
		var n int64
		err := db.Model(model).Where("is_active IS NULL").Count(&n).Error
		return n, err
	}
	res := db.Model(model).Where("is_active IS NULL").Update("is_active", true)
	return res.RowsAffected, res.Error
}
