package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile     string
	catalogPath string
	playerID    string
	debugMode   bool
)

func main() {
	rootCommand := newRootCommand()
	if err := rootCommand.Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "riddlectl: %v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "riddlectl",
		Short:         "Play and manage the riddle game from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "configs/.env", "dotenv file loaded before reading the environment")
	flags.StringVar(&catalogPath, "catalog", "", "riddle catalog (overrides CATALOG_PATH)")
	flags.StringVar(&playerID, "player", "local", "player id whose progress is used")
	flags.BoolVar(&debugMode, "debug", false, "log debug output to stderr")

	rootCommand.AddCommand(
		newPlayCommand(),
		newStatusCommand(),
		newResetCommand(),
		newValidateCommand(),
	)
	return rootCommand
}
