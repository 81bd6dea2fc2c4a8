package main

import (
	"github.com/spf13/cobra"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

var keysIn model.Credentials

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show which API keys are stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		ks, err := env.Service.Keys(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ks)
	},
}

var keysSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store API keys; omitted keys keep their value",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		ks, err := env.Service.SaveKeys(ctx, userID, keysIn)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ks)
	},
}

func init() {
	f := keysSetCmd.Flags()
	f.StringVar(&keysIn.BraveKey, "brave", "", "Brave Search API key")
	f.StringVar(&keysIn.PerplexityKey, "perplexity", "", "Perplexity API key")
	f.StringVar(&keysIn.AnthropicKey, "anthropic", "", "Anthropic API key")
	f.StringVar(&keysIn.GeminiKey, "gemini", "", "Gemini API key")
	f.StringVar(&keysIn.AmoCRMKey, "amocrm-token", "", "amoCRM long-lived token")
	f.StringVar(&keysIn.AmoCRMSubdomain, "amocrm-subdomain", "", "amoCRM account subdomain")

	keysCmd.AddCommand(keysSetCmd)
	rootCmd.AddCommand(keysCmd)
}
