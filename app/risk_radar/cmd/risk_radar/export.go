package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/export"
)

func newExportCmd() *cobra.Command {
	var (
		outDir string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export <report id>",
		Short: "Write a stored screening report to a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("export requires a configured database")
			}
			defer st.Close()

			report, err := st.GetReport(ctx, args[0])
			if err != nil {
				return err
			}
			path, err := export.WriteFile(outDir, report, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "export directory")
	cmd.Flags().StringVar(&format, "format", "json", "export format: json or yaml")
	return cmd
}
