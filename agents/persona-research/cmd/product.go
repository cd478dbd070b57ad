package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"persona-stack/internal/models"

	"github.com/spf13/cobra"
)

func newProductCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage products that sources can be linked to",
	}
	cmd.AddCommand(newProductAddCmd(a), newProductShowCmd(a), newProductListCmd(a))
	return cmd
}

func newProductAddCmd(a *app) *cobra.Command {
	var p models.Product

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.Name == "" {
				return fmt.Errorf("--name is required")
			}
			if err := a.store.CreateProduct(cmd.Context(), &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created product %d: %s\n", p.ID, p.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.Name, "name", "", "product name")
	cmd.Flags().StringVar(&p.Description, "description", "", "product description")
	cmd.Flags().StringVar(&p.TargetAudience, "audience", "", "target audience")
	cmd.Flags().StringVar(&p.PainPoints, "pain-points", "", "known pain points")
	cmd.Flags().StringVar(&p.KeyBenefits, "benefits", "", "key benefits")
	cmd.Flags().StringVar(&p.ValueProposition, "value-proposition", "", "value proposition")
	return cmd
}

func newProductShowCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product and its consolidated snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.store.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			fmt.Fprintf(out, "Product %d: %s\n", p.ID, p.Name)
			if p.Description != "" {
				fmt.Fprintf(out, "  %s\n", p.Description)
			}
			if !p.HasConsolidatedData() {
				fmt.Fprintln(out, "\nNot consolidated yet. Run: persona-research consolidate", p.ID)
				return nil
			}

			c := p.Consolidated
			fmt.Fprintf(out, "\nConsolidated %s from %d personas (%d YouTube, %d survey)",
				c.LastConsolidatedAt.Format(time.DateTime), c.TotalPersonas, c.YouTubePersonas, c.SurveyPersonas)
			if p.IsConsolidationStale(time.Now()) {
				fmt.Fprint(out, " [stale]")
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "\nTop personas:")
			for i, tp := range c.TopPersonas {
				fmt.Fprintf(out, "  %d. %s (%s, %s) from %s\n", i+1, tp.Name, tp.Age, tp.Occupation, tp.SourceName)
			}
			printCounts(out, "Pain points", c.PainPoints, 5)
			printCounts(out, "Motivations", c.Motivations, 5)
			printCounts(out, "Objections", c.Objections, 5)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the product as JSON")
	return cmd
}

func newProductListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := a.store.ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPERSONAS\tLAST CONSOLIDATED")
			for _, p := range products {
				last := "never"
				if p.Consolidated.LastConsolidatedAt != nil {
					last = p.Consolidated.LastConsolidatedAt.Format(time.DateTime)
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", p.ID, p.Name, p.Consolidated.TotalPersonas, last)
			}
			return w.Flush()
		},
	}
}
