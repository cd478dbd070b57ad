package main

import (
	"fmt"
	"io"

	"persona-stack/agents/persona-research/ingest"

	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import comments or survey responses",
	}
	cmd.AddCommand(newImportYouTubeCmd(a), newImportSurveyCmd(a))
	return cmd
}

func newImportYouTubeCmd(a *app) *cobra.Command {
	var (
		opts      ingest.VideoOptions
		productID int64
	)

	cmd := &cobra.Command{
		Use:   "youtube <video-url-or-id>",
		Short: "Import the comments of a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.youtube(ctx)
			if err != nil {
				return err
			}
			if err := client.RefreshToken(ctx); err != nil {
				return err
			}
			if opts.Limit == 0 {
				opts.Limit = a.cfg.Pipeline.DefaultCommentLimit
			}
			opts.ProductID = productFlag(productID)

			video, report, err := ingest.New(a.store, client, nil, a.logger).ImportVideo(ctx, args[0], opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Video %d: %s (%s)\n", video.ID, video.Title, video.ChannelTitle)
			printReport(out, report)
			if report.Partial {
				fmt.Fprintf(out, "Resume with: persona-research import youtube %s --page-token %s\n", video.VideoID, report.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum comments to fetch (default pipeline.default_comment_limit)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite comments that were already imported")
	cmd.Flags().StringVar(&opts.PageToken, "page-token", "", "resume a partial import from this cursor")
	cmd.Flags().Int64Var(&productID, "product", 0, "link the video to this product")
	return cmd
}

func newImportSurveyCmd(a *app) *cobra.Command {
	var (
		opts      ingest.SurveyOptions
		productID int64
	)

	cmd := &cobra.Command{
		Use:   "survey <sheet-url-or-id>",
		Short: "Import the responses of a Google Forms response sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.sheets(ctx)
			if err != nil {
				return err
			}
			opts.ProductID = productFlag(productID)

			survey, report, err := ingest.New(a.store, nil, client, a.logger).ImportSurvey(ctx, args[0], opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Survey %d: %s (%d responses)\n", survey.ID, survey.Title, survey.ResponsesCount)
			printReport(out, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "survey title (default is the spreadsheet title)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "survey description")
	cmd.Flags().StringVar(&opts.FormURL, "form-url", "", "public URL of the form")
	cmd.Flags().StringVar(&opts.Range, "range", "", "A1 range to read (default A:Z of the first sheet)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite responses that were already imported")
	cmd.Flags().Int64Var(&productID, "product", 0, "link the survey to this product")
	return cmd
}

func printReport(out io.Writer, r *ingest.Report) {
	fmt.Fprintf(out, "Fetched %d, imported %d, skipped %d\n", r.Fetched, r.Imported, r.Skipped)
	if r.FetchErr != nil {
		fmt.Fprintf(out, "Fetch stopped early: %v\n", r.FetchErr)
	}
}
