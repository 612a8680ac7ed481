package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
)

func scanCmd(configPath *string) *cobra.Command {
	var (
		date  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "立即执行一次到期扫描（补跑）",
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := parseScanDate(date)
			if err != nil {
				return err
			}

			a, err := bootstrap(*configPath, true)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				a.close(ctx)
			}()

			resp, runErr := a.svc.Scan.Run(cmd.Context(), today, service.RunOptions{Force: force, Trigger: service.TriggerCLI})
			if resp != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(resp)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "扫描日 YYYY-MM-DD，不能晚于今天（默认调度时区的今天）")
	cmd.Flags().BoolVar(&force, "force", false, "已完成的扫描日也重新执行")
	return cmd
}

func scheduleCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "接种计划维护",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "backfill",
		Short: "按档案出生日期为全部儿童重写接种计划",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			start := time.Now()
			n, err := a.svc.Schedule.Backfill(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d elapsed=%s\n", n, time.Since(start).Round(time.Millisecond))
			return err
		},
	})

	return cmd
}

// parseScanDate 空字符串表示使用当天
func parseScanDate(s string) (model.Date, error) {
	if s == "" {
		return model.Date{}, nil
	}
	return model.ParseDate(s)
}
