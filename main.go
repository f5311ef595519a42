package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattsolo1/grove-core/cli"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-explorer/cmd"
	"github.com/mattsolo1/grove-explorer/cmd/config"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

var svc *service.Service

// offline commands run without a backend session.
var offline = map[string]bool{"version": true, "help": true, "completion": true}

func main() {
	rootCmd := cli.NewStandardCommand(
		"grove-explorer",
		"Browse and organize the groups, drives, folders and items of the platform",
	)
	config.AddGlobalFlags(rootCmd)
	cobra.OnInitialize(config.InitConfig)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		// This runs once before any subcommand
		if offline[c.Name()] {
			return nil
		}
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
		if f := c.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			logger.SetLevel(logrus.DebugLevel)
		}

		cfg, err := config.ServiceConfig()
		if err != nil {
			return err
		}
		svc, err = service.New(context.Background(), cfg, cmd.NewHost(cfg.BackendURL), logrus.NewEntry(logger))
		if err != nil {
			return fmt.Errorf("failed to initialize explorer: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if svc == nil {
			return nil
		}
		return svc.Close()
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewListCmd(&svc))
	rootCmd.AddCommand(cmd.NewTreeCmd(&svc))
	rootCmd.AddCommand(cmd.NewMkdirCmd(&svc))
	rootCmd.AddCommand(cmd.NewRenameCmd(&svc))
	rootCmd.AddCommand(cmd.NewRmCmd(&svc))
	rootCmd.AddCommand(cmd.NewMoveCmd(&svc))
	rootCmd.AddCommand(cmd.NewBorrowCmd(&svc))
	rootCmd.AddCommand(cmd.NewPurgeCmd(&svc))
	rootCmd.AddCommand(cmd.NewSearchCmd(&svc))
	rootCmd.AddCommand(cmd.NewActionsCmd(&svc))
	rootCmd.AddCommand(cmd.NewFavoritesCmd(&svc))
	rootCmd.AddCommand(cmd.NewWatchCmd(&svc))
	rootCmd.AddCommand(cmd.NewDoctorCmd(&svc))
	rootCmd.AddCommand(cmd.NewTuiCmd(&svc))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
