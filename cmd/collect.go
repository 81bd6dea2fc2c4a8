package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var collectCmd = &cobra.Command{
	Use:   "collect <contact-id>",
	Short: "Research a contact and its company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		contactID, err := parseContactID(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		contact, err := env.Service.CollectData(ctx, userID, contactID)
		if err != nil {
			return err
		}

		zap.L().Info("collection complete",
			zap.Int64("contact_id", contactID),
			zap.Int("queries", len(contact.CollectedData.SearchQueries)),
		)
		return printJSON(cmd.OutOrStdout(), contact.CollectedData)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
