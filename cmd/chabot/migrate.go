package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NBMedia786/chabot/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the profile tables",
		Long:  "Connects to the configured database and runs the schema migration. Safe to run multiple times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "chabot.yaml", "path to config file (optional)")
	return cmd
}

func runMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, cfg, err := loadConfig(configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if !cfg.Database.PersistenceConfigured() {
		return fmt.Errorf("migrate: no database configured (set database.driver or DATABASE_DRIVER)")
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	fmt.Fprintf(out, "Connected to %s database\n", cfg.Database.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}
