package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopease/internal/config"
	"shopease/internal/database"
	"shopease/pkg/log"
)

func migrateCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "migrate <service>",
		Short: "Create or update the tables one service owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(path, args[0])
			if err != nil {
				return err
			}
			if err := log.Init(cfg.Log, cfg.Service); err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if check {
				missing, err := database.CheckTables(db, cfg.Service)
				if err != nil {
					return err
				}
				if len(missing) > 0 {
					return fmt.Errorf("missing tables: %v", missing)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: all tables present\n", cfg.Service)
				return nil
			}
			return database.AutoMigrate(db, cfg.Service)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "only report missing tables")
	return cmd
}
