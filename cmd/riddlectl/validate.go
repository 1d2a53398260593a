package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/riddle-gift/internal/catalog"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog]",
		Short: "Check a riddle catalog for mistakes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := catalogPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				cfg, err := loadConfig(cmd.Context())
				if err != nil {
					return err
				}
				path = cfg.Game.CatalogPath
			}

			cat, err := catalog.Load(path)
			return reportCatalog(cmd.OutOrStdout(), path, cat, err)
		},
	}
}

func reportCatalog(w io.Writer, path string, cat *catalog.Catalog, err error) error {
	red := color.New(color.FgRed)
	var invalid *catalog.ValidationError
	switch {
	case errors.As(err, &invalid):
		red.Fprintf(w, "%s: %d problem(s)\n", path, len(invalid.Problems))
		for _, problem := range invalid.Problems {
			fmt.Fprintf(w, "  - %s\n", problem)
		}
		return fmt.Errorf("validation failed with %d problem(s)", len(invalid.Problems))
	case err != nil:
		return err
	}

	hints := 0
	for _, q := range cat.Questions {
		hints += len(q.Hints)
	}
	color.New(color.FgGreen).Fprintf(w, "%s: OK\n", path)
	fmt.Fprintf(w, "  %d riddles, %d hints, reward %q\n", len(cat.Questions), hints, cat.Reward.Title)
	return nil
}
