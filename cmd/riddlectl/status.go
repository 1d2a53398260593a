package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/riddle-gift/internal/game"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a player's progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			svc, store, err := openOffline(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := svc.State(ctx, playerID)
			if err != nil {
				return fmt.Errorf("load progress: %w", err)
			}
			printStatus(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a player's game over",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			svc, store, err := openOffline(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := svc.Reset(ctx, playerID)
			if err != nil {
				return fmt.Errorf("reset progress: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress of %s reset.\n", playerID)
			printStatus(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func printStatus(w io.Writer, view game.View) {
	fmt.Fprintf(w, "Player:    %s\n", view.PlayerID)
	fmt.Fprintf(w, "Completed: %d/%d %v\n", len(view.CompletedQuestions), view.Total, view.CompletedQuestions)
	if view.Complete {
		fmt.Fprintln(w, "Status:    complete")
		return
	}
	if view.Question != nil {
		fmt.Fprintf(w, "Current:   #%d %s\n", view.Question.ID, view.Question.Prompt)
		fmt.Fprintf(w, "Hints:     %d/%d\n", len(view.Question.RevealedHints), view.Question.HintCount)
	}
}
