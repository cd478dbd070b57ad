package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	personaresearch "persona-stack/agents/persona-research"
	"persona-stack/shared/scheduler"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled pipeline: analyze pending items, consolidate stale products, mail a digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Create context that responds to signals
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			agent := personaresearch.NewPersonaAgent(a.cfg, personaresearch.Deps{Store: a.store}, a.logger)
			s := scheduler.New(a.cfg, agent, a.logger)

			if once {
				a.logger.Info("Running once")
				if err := agent.Initialize(ctx); err != nil {
					return err
				}
				return s.RunOnce(ctx)
			}

			a.logger.Info("Starting scheduler")
			if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run the pipeline once and exit")
	return cmd
}
