package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/store"
)

var (
	settingsSearch       []string
	settingsTheme        string
	settingsPlaybookFile string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show user settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.Service.Settings(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update search providers, theme or playbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		cur, err := env.Service.Settings(ctx, userID)
		if err != nil {
			return err
		}
		next := *cur

		if cmd.Flags().Changed("search") {
			next.SearchSystems = make([]model.Service, 0, len(settingsSearch))
			for _, s := range settingsSearch {
				next.SearchSystems = append(next.SearchSystems, model.Service(s))
			}
		}
		if cmd.Flags().Changed("theme") {
			next.Theme = settingsTheme
		}
		if settingsPlaybookFile != "" {
			b, err := os.ReadFile(settingsPlaybookFile)
			if err != nil {
				return eris.Wrap(err, "read playbook")
			}
			next.Playbook = string(b)
		}

		saved, err := env.Service.SaveSettings(ctx, userID, next)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), saved)
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <profile.yaml>",
	Short: "Import settings and API keys from a YAML profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open profile")
		}
		defer f.Close()

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := store.ImportProfile(ctx, env.Store, userID, f)
		if err != nil {
			return err
		}

		zap.L().Info("profile imported",
			zap.Int64("user_id", userID),
			zap.Bool("settings", p.Settings != nil),
			zap.Bool("credentials", p.Credentials != nil),
		)
		return nil
	},
}

func init() {
	f := settingsSetCmd.Flags()
	f.StringSliceVar(&settingsSearch, "search", nil, "enabled search providers (brave, perplexity)")
	f.StringVar(&settingsTheme, "theme", "", "UI theme (light, dark)")
	f.StringVar(&settingsPlaybookFile, "playbook-file", "", "file with the product playbook")

	settingsCmd.AddCommand(settingsSetCmd, settingsImportCmd)
	rootCmd.AddCommand(settingsCmd)
}
