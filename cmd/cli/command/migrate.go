package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"appgambit/database"
)

// migrateCmd applies the schema. Connect already migrates, so this just reports.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		fmt.Printf("✓ Schema is up to date (%d tables, driver %s)\n", len(database.Models()), db.Dialector.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
