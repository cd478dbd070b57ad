package main

import (
	"errors"
	"fmt"
	"strings"

	"persona-stack/agents/persona-research/consolidate"
	"persona-stack/agents/persona-research/copywriter"
	"persona-stack/agents/persona-research/persona"
	"persona-stack/internal/models"

	"github.com/spf13/cobra"
)

func newPersonasCmd(a *app) *cobra.Command {
	var (
		count int
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "personas <youtube|survey> <source-id>",
		Short: "Generate buyer personas from a source's analyses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSourceRef(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if list {
				personas, err := a.store.ListPersonas(ctx, ref)
				if err != nil {
					return err
				}
				if len(personas) == 0 {
					fmt.Fprintln(out, "No personas yet.")
				}
				for i, p := range personas {
					printPersona(out, i, p)
				}
				return nil
			}

			client, err := a.llm(ctx)
			if err != nil {
				return err
			}
			if count == 0 {
				count = a.cfg.Pipeline.DefaultPersonas
			}

			result, err := persona.New(a.store, client, a.cfg, a.logger).Generate(ctx, ref, count)
			if errors.Is(err, persona.ErrEmptyInput) {
				return fmt.Errorf("%w: run analyze %s %d first", err, args[0], ref.ID)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Generated %d personas from %d sampled of %d analyses (%d tokens)\n",
				len(result.Personas), result.Sampled, result.ItemsAnalyzed, result.TokensUsed)
			for i, p := range result.Personas {
				printPersona(out, i, p)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, fmt.Sprintf("number of personas, %d to %d (default pipeline.default_personas)", persona.MinPersonas, persona.MaxPersonas))
	cmd.Flags().BoolVar(&list, "list", false, "show the current personas without generating")
	return cmd
}

func newConsolidateCmd(a *app) *cobra.Command {
	var stale bool

	cmd := &cobra.Command{
		Use:   "consolidate [product-id]",
		Short: "Merge the personas of a product's sources into one snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			c := consolidate.New(a.store, a.logger)

			var ids []int64
			switch {
			case len(args) == 1:
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ids = append(ids, id)
			case stale:
				products, err := a.store.ListStaleProducts(ctx)
				if err != nil {
					return err
				}
				for _, p := range products {
					ids = append(ids, p.ID)
				}
			default:
				return fmt.Errorf("give a product id or --stale")
			}

			for _, id := range ids {
				p, err := c.Consolidate(ctx, id)
				if err != nil {
					return fmt.Errorf("product %d: %w", id, err)
				}
				snap := p.Consolidated
				fmt.Fprintf(out, "Consolidated %s: %d personas (%d YouTube, %d survey)\n",
					p.Name, snap.TotalPersonas, snap.YouTubePersonas, snap.SurveyPersonas)
			}
			if len(ids) == 0 {
				fmt.Fprintln(out, "Every product is up to date.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stale, "stale", false, "consolidate every product with a missing or outdated snapshot")
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	var (
		opts      copywriter.Options
		copyType  string
		personaNo int
	)

	types := make([]string, len(models.CopyTypes))
	for i, t := range models.CopyTypes {
		types[i] = string(t)
	}

	cmd := &cobra.Command{
		Use:   "copy <product-id>",
		Short: "Write marketing copy from a product's consolidated personas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := a.llm(ctx)
			if err != nil {
				return err
			}

			opts.Type = models.CopyType(copyType)
			if personaNo > 0 {
				idx := personaNo - 1
				opts.PersonaIndex = &idx
			}

			gen, err := copywriter.New(a.store, client, a.cfg, a.logger).Generate(ctx, id, opts)
			if errors.Is(err, copywriter.ErrNotConsolidated) {
				return fmt.Errorf("%w: run consolidate %d first", err, id)
			}
			if err != nil {
				return err
			}

			printCopy(cmd.OutOrStdout(), gen)
			return nil
		},
	}

	cmd.Flags().StringVar(&copyType, "type", string(models.CopyFacebookAd), "copy type: "+strings.Join(types, ", "))
	cmd.Flags().StringVar(&opts.Name, "name", "", "name for the generation")
	cmd.Flags().IntVar(&opts.Variations, "variations", 1, fmt.Sprintf("number of variations, up to %d", copywriter.MaxVariations))
	cmd.Flags().StringVar(&opts.Tone, "tone", "", "professional, casual, urgent, inspirational, educational, emotional or free text")
	cmd.Flags().StringVar(&opts.Objective, "objective", "", "traffic, conversions, leads, awareness, engagement or free text")
	cmd.Flags().StringVar(&opts.Angle, "angle", "", "main sales angle")
	cmd.Flags().IntVar(&personaNo, "persona", 0, "focus on the Nth top persona (1-5)")
	return cmd
}
