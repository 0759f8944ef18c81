/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local notes with the remote note service.",
	Long: `Fetch the remote notes and reconcile them with the local cache.

For each note the side with the newer modification time wins. Locally newer
notes are updated remotely, notes unknown to the service are created. The
reconciled collection is written back to the local store.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store.UserID() == "" {
		a.logger.Warn("no user registered, requests go out unscoped")
	}

	notes, err := a.session.Load(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d notes\n", len(notes))
	return nil
}
