package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/database"
)

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return a.migrate()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "查看当前迁移版本",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})

	return cmd
}
