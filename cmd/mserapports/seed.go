package main

import (
	"context"
	"fmt"

	"mserapports/internal/db"
	"mserapports/internal/seed"
	"mserapports/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with sample reports",
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		database, err := db.Open(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if err := db.Migrate(ctx, database); err != nil {
			return err
		}

		blobs, err := loadBlobStore(ctx, config)
		if err != nil {
			return err
		}

		logrus.Info("Connected to database")

		reportRepo := store.NewReportRepository(database, blobs)

		logrus.Info("Seeding reports...")
		if err := seed.SeedReports(ctx, reportRepo); err != nil {
			return fmt.Errorf("failed to seed reports: %w", err)
		}

		logrus.Info("Reports seeded successfully")

		return nil
	},
}
