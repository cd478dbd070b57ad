package main

import (
	"errors"
	"fmt"
	"io"

	"persona-stack/agents/persona-research/angles"
	"persona-stack/internal/models"

	"github.com/spf13/cobra"
)

func newAnglesCmd(a *app) *cobra.Command {
	var (
		count int
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "angles <youtube|survey> <source-id>",
		Short: "Generate sales angles from a source's most relevant analyses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSourceRef(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if list {
				saved, err := a.store.ListSalesAngles(ctx, ref)
				if err != nil {
					return err
				}
				if len(saved) == 0 {
					fmt.Fprintln(out, "No sales angles yet.")
				}
				for _, angle := range saved {
					printAngle(out, angle)
				}
				return nil
			}

			client, err := a.llm(ctx)
			if err != nil {
				return err
			}

			result, err := angles.New(a.store, client, a.cfg, a.logger).Generate(ctx, ref, count)
			if errors.Is(err, angles.ErrNoAnalyses) {
				return fmt.Errorf("%w: run analyze %s %d first", err, args[0], ref.ID)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Generated %d sales angles from %d analyses and %d personas (%d tokens)\n",
				len(result.Angles), result.Analyses, result.Personas, result.TokensUsed)
			for _, angle := range result.Angles {
				printAngle(out, angle)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", angles.DefaultAngles, fmt.Sprintf("number of angles, up to %d", angles.MaxAngles))
	cmd.Flags().BoolVar(&list, "list", false, "show the current angles without generating")
	return cmd
}

func printAngle(out io.Writer, a *models.SalesAngle) {
	fmt.Fprintf(out, "\n%d. %s", a.Position, a.Title)
	if a.Focus != "" || a.ContentType != "" {
		fmt.Fprintf(out, "  [%s, %s]", orDash(string(a.Focus)), orDash(string(a.ContentType)))
	}
	fmt.Fprintln(out)
	if a.Description != "" {
		fmt.Fprintf(out, "   %s\n", a.Description)
	}
	if a.CopyExample != "" {
		fmt.Fprintf(out, "   Copy: %s\n", a.CopyExample)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
