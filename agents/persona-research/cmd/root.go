package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"persona-stack/agents/persona-research/sheets"
	"persona-stack/agents/persona-research/youtube"
	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"
	"persona-stack/shared/logging"
	"persona-stack/shared/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand shares. It is filled in by the root
// command's pre-run hook.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	store   *storage.Store
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "persona-research",
		Short:         "Build buyer personas from YouTube comments and survey responses.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $CONFIG_FILE or config.yaml)")

	rootCmd.AddCommand(newProductCmd(a))
	rootCmd.AddCommand(newImportCmd(a))
	rootCmd.AddCommand(newSourcesCmd(a))
	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newResetAnalyzingCmd(a))
	rootCmd.AddCommand(newPersonasCmd(a))
	rootCmd.AddCommand(newConsolidateCmd(a))
	rootCmd.AddCommand(newAnglesCmd(a))
	rootCmd.AddCommand(newCopyCmd(a))
	rootCmd.AddCommand(newCopiesCmd(a))
	rootCmd.AddCommand(newAnalysesCmd(a))
	rootCmd.AddCommand(newStatsCmd(a))
	rootCmd.AddCommand(newRunCmd(a))

	return rootCmd
}

func (a *app) setup() error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFile(a.cfgFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	a.logger, err = logging.New(a.cfg.Logging)
	if err != nil {
		return err
	}

	a.store, err = storage.Open(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return nil
}

func (a *app) teardown() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) llm(ctx context.Context) (ai.Client, error) {
	client, err := ai.NewClient(ctx, &a.cfg.LLM, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func (a *app) youtube(ctx context.Context) (*youtube.Client, error) {
	client, err := youtube.NewClient(ctx, &a.cfg.YouTube, a.cfg.Pipeline, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	return client, nil
}

func (a *app) sheets(ctx context.Context) (*sheets.Client, error) {
	client, err := sheets.NewClient(ctx, &a.cfg.Sheets, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}
	return client, nil
}

// parseSourceRef accepts "youtube"/"video" and "survey"/"google_forms".
func parseSourceRef(kind, id string) (models.SourceRef, error) {
	var ref models.SourceRef
	switch strings.ToLower(kind) {
	case "youtube", "video":
		ref.Type = models.SourceYouTube
	case "survey", "google_forms", "form":
		ref.Type = models.SourceSurvey
	default:
		return ref, fmt.Errorf("unknown source type %q (use youtube or survey)", kind)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ref, fmt.Errorf("invalid source id %q: %w", id, err)
	}
	ref.ID = n
	return ref, nil
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return n, nil
}

// productFlag returns nil when the flag was left at zero.
func productFlag(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
