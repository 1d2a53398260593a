package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/riddle-gift/internal/app"
	"github.com/gokatarajesh/riddle-gift/internal/terminal"
)

func newPlayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play the riddles interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			g, err := app.NewGame(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer g.Close()

			return terminal.NewSession(g.Service, playerID, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		},
	}
}
