package main

import (
	"fmt"
	"text/tabwriter"

	"persona-stack/agents/persona-research/classifier"
	"persona-stack/internal/models"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var opts classifier.BatchOptions

	cmd := &cobra.Command{
		Use:   "analyze <youtube|survey> <source-id>",
		Short: "Classify the unanalyzed items of a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSourceRef(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := a.llm(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts.OnProgress = func(done, total int) {
				fmt.Fprintf(out, "\rAnalyzed %d/%d", done, total)
			}
			report, err := classifier.New(a.store, client, a.cfg, a.logger).AnalyzeBatch(ctx, ref, opts)
			if report != nil && report.Total > 0 {
				fmt.Fprintln(out)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%d items: %d analyzed, %d skipped, %d errors, %d tokens\n",
				report.Total, report.Analyzed, report.Skipped, report.Errors, report.Tokens)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum items to analyze (0 for all)")
	cmd.Flags().BoolVar(&opts.Reanalyze, "reanalyze", false, "delete existing analyses first")
	return cmd
}

func newResetAnalyzingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-analyzing [<youtube|survey> <source-id>]",
		Short: "Clear analyzing flags left by an interrupted batch",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or a source type and id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref *models.SourceRef
			if len(args) == 2 {
				r, err := parseSourceRef(args[0], args[1])
				if err != nil {
					return err
				}
				ref = &r
			}
			n, err := a.store.ResetAnalyzing(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d sources\n", n)
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <youtube|survey> <source-id>",
		Short: "Show analysis statistics for a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSourceRef(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			source, err := a.store.GetSource(ctx, ref)
			if err != nil {
				return err
			}
			stats, err := a.store.AnalysisStats(ctx, ref, a.cfg.Pipeline.MinTextLength)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", source.DisplayName(), ref)
			fmt.Fprintf(out, "Items: %d imported, %d analyzed, %d pending\n", stats.TotalItems, stats.Total, stats.PendingItems)
			fmt.Fprintf(out, "Relevant: %d, average score %.1f, %d tokens\n", stats.Relevant, stats.AverageScore, stats.TotalTokens)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\nCATEGORY\tCOUNT")
			for _, c := range models.Categories {
				if n := stats.ByCategory[c]; n > 0 {
					fmt.Fprintf(w, "%s\t%d\n", c, n)
				}
			}
			fmt.Fprintln(w, "\nSENTIMENT\tCOUNT")
			for _, s := range models.Sentiments {
				fmt.Fprintf(w, "%s\t%d\n", s, stats.BySentiment[s])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			printCounts(out, "Top keywords", stats.TopKeywords, 10)
			return nil
		},
	}
}
