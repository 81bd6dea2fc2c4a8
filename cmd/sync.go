package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
)

var syncSource string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import contacts from the CRM",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, err := crm.ParseSource(syncSource)
		if err != nil {
			return err
		}

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		contacts, err := env.Service.Sync(ctx, userID, source)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "synced %d contacts from %s\n", len(contacts), source)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", string(crm.SourceAmoCRM), "CRM to import from (amocrm, salesforce)")
	rootCmd.AddCommand(syncCmd)
}
