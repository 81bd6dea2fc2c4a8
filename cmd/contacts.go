package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

var contactsJSON bool

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		contacts, err := env.Service.Contacts(ctx, userID)
		if err != nil {
			return err
		}
		if contactsJSON {
			return printJSON(cmd.OutOrStdout(), contacts)
		}
		return writeContactTable(cmd.OutOrStdout(), contacts)
	},
}

var contactShowCmd = &cobra.Command{
	Use:   "show <contact-id>",
	Short: "Show one contact with collected data and recommendations",
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

		c, err := env.Service.Contact(ctx, userID, contactID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	},
}

func writeContactTable(w io.Writer, contacts []model.Contact) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOMPANY\tPOSITION\tCOLLECTED\tRECS\tUPDATED")
	for _, c := range contacts {
		collected := "no"
		if c.CollectedData != nil {
			collected = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.Name, c.Company, c.Position, collected, len(c.Recommendations),
			c.LastUpdated.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

func init() {
	contactsCmd.Flags().BoolVar(&contactsJSON, "json", false, "print JSON instead of a table")
	contactsCmd.AddCommand(contactShowCmd)
	rootCmd.AddCommand(contactsCmd)
}
