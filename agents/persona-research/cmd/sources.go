package main

import (
	"fmt"
	"text/tabwriter"

	"persona-stack/internal/models"

	"github.com/spf13/cobra"
)

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List imported videos and surveys",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			videos, err := a.store.ListVideos(ctx)
			if err != nil {
				return err
			}
			surveys, err := a.store.ListSurveys(ctx)
			if err != nil {
				return err
			}

			var all []models.Source
			for _, v := range videos {
				all = append(all, v)
			}
			for _, s := range surveys {
				all = append(all, s)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tTITLE\tPRODUCT\tITEMS\tANALYZED\tSTATUS")
			for _, src := range all {
				ref := src.Ref()
				items, err := a.store.CountItems(ctx, ref)
				if err != nil {
					return err
				}
				analyzed, err := a.store.CountAnalyses(ctx, ref)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", ref, src.DisplayName(), product(src.LinkedProduct()),
					items, analyzed, status(analyzing(src)))
			}
			return w.Flush()
		},
	}
}

func product(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}

func analyzing(src models.Source) bool {
	switch s := src.(type) {
	case *models.Video:
		return s.IsAnalyzing
	case *models.Survey:
		return s.IsAnalyzing
	}
	return false
}

func status(analyzing bool) string {
	if analyzing {
		return "analyzing"
	}
	return "idle"
}
