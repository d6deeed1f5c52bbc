package main

import (
	"context"
	"fmt"

	"mserapports/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Ensure the reports schema exists",
	Action: func(cCtx *cli.Context) error {
		config, err := loadConfig()
		if err != nil {
			return err
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

		logrus.Info("schema up to date")

		return nil
	},
}
