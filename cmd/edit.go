/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/ikasoba/notesync/core"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note locally. It is sent to the service on the next sync.",
	RunE:  runNew,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the title, content or visibility of a local note.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import markdown files with frontmatter as local notes.",
	Long: `Import markdown files as local notes.

The frontmatter may set title, updated_at and hidden. The body becomes the
note content.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(importCmd)

	newCmd.Flags().String("title", "", "Note title.")
	newCmd.Flags().String("content", "", "Note content.")

	editCmd.Flags().String("title", "", "New title.")
	editCmd.Flags().String("content", "", "New content.")
	editCmd.Flags().Bool("hidden", false, "Hide or show the note.")
}

func runNew(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	title, _ := flags.GetString("title")
	content, _ := flags.GetString("content")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.LoadLocal(); err != nil {
		return err
	}

	note, err := a.session.AddNote(core.Note{Title: title, Content: content})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), note.ID)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	id := core.NoteID(args[0])
	flags := cmd.Flags()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.LoadLocal(); err != nil {
		return err
	}

	if flags.Changed("title") {
		title, _ := flags.GetString("title")
		if _, err := a.session.SetTitle(id, title); err != nil {
			return err
		}
	}

	if flags.Changed("content") {
		content, _ := flags.GetString("content")
		if _, err := a.session.SetContent(id, content); err != nil {
			return err
		}
	}

	if flags.Changed("hidden") {
		hidden, _ := flags.GetBool("hidden")
		if _, err := a.session.SetHidden(id, hidden); err != nil {
			return err
		}
	}

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.LoadLocal(); err != nil {
		return err
	}

	for _, path := range args {
		if err := importFile(a.session, path); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}

	return nil
}

func importFile(session *core.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	note, err := core.ParseNote(f, info.ModTime())
	if err != nil {
		return err
	}

	_, err = session.AddNote(note)
	return err
}
