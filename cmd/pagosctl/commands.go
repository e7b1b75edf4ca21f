package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pagos/internal/core"
	"pagos/internal/report"
	"pagos/internal/storage"
)

func newReportCmd() *cobra.Command {
	var (
		date    string
		summary string
		pdfPath string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the per-agent report for a business date",
		Long: `Print the totals and the per-agent table for one business date
(today by default). Pass --date "" to report every date. With --pdf the
same report is also written as a PDF file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fee, err := parsedFee()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("date") {
				date = core.BusinessDate(now())
			} else if date != "" {
				if _, err := core.ParseBusinessDate(date); err != nil {
					return err
				}
			}

			all, err := withPayments(cmd.Context())
			if err != nil {
				return err
			}
			payments := core.FilterByDate(all, date)
			stats := core.ComputeStats(payments, fee)
			groups := core.SummaryGroups(stats, summary)

			label := date
			if label == "" {
				label = "todas las fechas"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.ClosingText(label, fee, stats, nil))
			report.SummaryTable(out, groups)

			if pdfPath == "" {
				return nil
			}
			f, err := os.Create(pdfPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", pdfPath, err)
			}
			defer f.Close()
			if err := report.PDF(f, report.Document{
				Title:       "Control Pagos",
				Date:        date,
				FeeRate:     fee,
				Stats:       stats,
				Payments:    payments,
				GeneratedAt: now(),
			}); err != nil {
				return err
			}
			fmt.Fprintf(out, "PDF escrito en %s\n", pdfPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Business date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&summary, "summary", "", "Only agents matching this search")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also write the report to this PDF file")
	return cmd
}

func newRangeCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Print totals over an inclusive range of business dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fee, err := parsedFee()
			if err != nil {
				return err
			}
			all, err := withPayments(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := core.RangeStats(all, start, end, fee)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.ClosingText(start+" a "+end, fee, stats, nil))
			report.SummaryTable(out, core.SummaryGroups(stats, ""))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First business date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last business date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the known agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := openRepository(dbPath)
			if err != nil {
				return fmt.Errorf("open %s: %w", dbPath, err)
			}
			defer repo.Close()

			agents, err := repo.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range agents {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := storage.RunMigrations(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
