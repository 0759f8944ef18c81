/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally cached notes.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("all", false, "Include hidden notes.")
	listCmd.Flags().Bool("debug", false, "Dump the full note records.")
}

func runList(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	all, _ := flags.GetBool("all")
	debug, _ := flags.GetBool("debug")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.LoadLocal(); err != nil {
		return err
	}

	notes := a.session.VisibleNotes()
	if all {
		notes = a.session.Notes()
	}

	out := cmd.OutOrStdout()

	if debug {
		_, err := pp.Fprintln(out, notes)
		return err
	}

	for _, n := range notes {
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}

		fmt.Fprintf(out, "%s\t%s\t%s\n", n.ID, n.UpdatedAt.Local().Format(time.DateTime), title)
	}

	return nil
}
