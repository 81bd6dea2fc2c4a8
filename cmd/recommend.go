package main

import (
	"github.com/spf13/cobra"
)

var recommendModel string

var recommendCmd = &cobra.Command{
	Use:   "recommend <contact-id>",
	Short: "Generate product recommendations for a contact",
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

		recs, err := env.Service.GenerateRecommendations(ctx, userID, contactID, recommendModel)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendModel, "model", "", "generation model id, e.g. gemini-2.5-flash (default from config)")
	rootCmd.AddCommand(recommendCmd)
}
