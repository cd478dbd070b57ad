package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"persona-stack/internal/models"
	"persona-stack/shared/storage"

	"github.com/spf13/cobra"
)

func newCopiesCmd(a *app) *cobra.Command {
	var show int64

	cmd := &cobra.Command{
		Use:   "copies <product-id>",
		Short: "List the copy generated for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			gens, err := a.store.ListCopyGenerations(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if show != 0 {
				for _, g := range gens {
					if g.ID == show {
						printCopy(out, g)
						return nil
					}
				}
				return fmt.Errorf("copy generation %d of product %d: %w", show, id, storage.ErrNotFound)
			}

			if len(gens) == 0 {
				fmt.Fprintln(out, "No copy generated yet.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tVARIATIONS\tCHARS\tCREATED")
			for _, g := range gens {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", g.ID, g.Name, g.Type, len(g.Variations),
					g.CharacterCount, g.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&show, "show", 0, "print the variations of this generation")
	return cmd
}

func printCopy(out io.Writer, g *models.CopyGeneration) {
	fmt.Fprintf(out, "%s (generation %d, %d tokens)\n", g.Name, g.ID, g.TokensUsed)
	for i, v := range g.Variations {
		fmt.Fprintf(out, "\n--- Variation %d ---\n", i+1)
		fmt.Fprintf(out, "Headline: %s\n", v.Headline)
		if v.Subheadline != "" {
			fmt.Fprintf(out, "Subheadline: %s\n", v.Subheadline)
		}
		fmt.Fprintf(out, "\n%s\n", v.Body)
		if v.CTA != "" {
			fmt.Fprintf(out, "\nCTA: %s\n", v.CTA)
		}
		for k, e := range v.Extras {
			fmt.Fprintf(out, "%s: %s\n", k, e)
		}
	}
}

func newAnalysesCmd(a *app) *cobra.Command {
	var (
		filter    storage.AnalysisFilter
		category  string
		sentiment string
	)

	cmd := &cobra.Command{
		Use:   "analyses <youtube|survey> <source-id>",
		Short: "List a source's analyses, most relevant first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSourceRef(args[0], args[1])
			if err != nil {
				return err
			}
			if category != "" {
				filter.Category = models.Category(category)
				if !filter.Category.Valid() {
					return fmt.Errorf("unknown category %q", category)
				}
			}
			if sentiment != "" {
				filter.Sentiment = models.Sentiment(sentiment)
				if !filter.Sentiment.Valid() {
					return fmt.Errorf("unknown sentiment %q", sentiment)
				}
			}

			ctx := cmd.Context()
			records, err := a.store.FilterAnalyses(ctx, ref, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No matching analyses.")
				return nil
			}

			for _, r := range records {
				item, err := a.store.GetContentItem(ctx, r.ContentItemID)
				if err != nil {
					return err
				}
				relevant := ""
				if r.IsRelevant {
					relevant = ", relevant"
				}
				fmt.Fprintf(out, "\n[%d] %s / %s, score %d%s\n", r.ID, r.Category, r.Sentiment, r.RelevanceScore, relevant)
				fmt.Fprintf(out, "   %s: %s\n", orDash(item.Author), item.Text())
				if r.Insights.BuyerInsight != "" {
					fmt.Fprintf(out, "   Insight: %s\n", r.Insights.BuyerInsight)
				}
			}
			fmt.Fprintf(out, "\n%d analyses\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&sentiment, "sentiment", "", "only this sentiment (positive, neutral, negative)")
	cmd.Flags().IntVar(&filter.MinRelevance, "min-relevance", 0, "minimum relevance score (1-10)")
	cmd.Flags().BoolVar(&filter.OnlyRelevant, "relevant", false, "only analyses marked relevant")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum analyses to show (0 means all)")
	return cmd
}
