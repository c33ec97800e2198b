/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// root.go defines the root command and CLI execution entry point.
//
// PersistentPreRunE prepares logging for every command and opens the store
// only for commands that need it, so init, config, guide and version work
// on a machine with no data directory yet.

package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/jpl-au/pim/internal/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pim",
	Short: "Local-first personal information manager",
	Long: `pim keeps knowledge bases, cards, tasks, habits, a password vault,
AI conversations, books and a timeline in one local SQLite database.

Every command accepts -o json for machine-readable output. Run
"pim serve" to expose the same operations to MCP clients.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if output != "" && !slices.Contains(validOutputFormats, output) {
			return fmt.Errorf("invalid output format: %s (valid: %v)", output, validOutputFormats)
		}

		name := topLevelCmdName(cmd)
		storeless := noStoreCommands[name]

		if err := prepare(); err != nil {
			if !storeless {
				return fail(cmd, err)
			}
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		if !storeless {
			if err := initExtensions(cmd.Context()); err != nil {
				return fail(cmd, fmt.Errorf("initialise extensions: %w", err))
			}
		}
		return nil
	},
}

// fail reports a setup error in the requested output format.
func fail(cmd *cobra.Command, err error) error {
	if JSON() {
		_ = PrintJSON(map[string]string{"error": Describe(err)})
		cmd.SilenceErrors = true
	}
	return err
}

// topLevelCmdName returns the name of the direct child of root.
// For "pim page show <id>", returns "page".
func topLevelCmdName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// Execute registers extensions, runs the root command and closes whatever
// the command opened. Exit code 1 indicates error.
func Execute() {
	registerExtensions()
	err := rootCmd.Execute()

	if extStore != nil {
		if closeErr := extStore.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: closing store: %v\n", closeErr)
		}
	}
	log.Close()
	if diagCloser != nil {
		_ = diagCloser.Close()
	}

	if err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing and extension access.
func RootCmd() *cobra.Command {
	return rootCmd
}
