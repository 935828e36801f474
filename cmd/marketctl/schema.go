package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rudzz/marketplace/internal/adapters/database"
)

// schemaCmd prints the relational schema
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the Postgres schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), database.Schema())
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
