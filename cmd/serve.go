/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ikasoba/notesync/core"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts as an MCP server.",
	Long: `Starts as an MCP server over stdio.

The notes are reconciled with the remote service once at startup. Edits made
through the tools are saved locally and sent on the next sync_notes call or
the next session.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Load(cmd.Context()); err != nil {
		return err
	}

	n := &NotesMCP{session: a.session}

	s := server.NewMCPServer(
		"notesync",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	n.register(s)

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// NotesMCP exposes a session as MCP tools.
type NotesMCP struct {
	session *core.Session

	// serializes reconciliation passes
	syncMu sync.Mutex
}

func (n *NotesMCP) register(s *server.MCPServer) {
	{
		tool := mcp.NewTool("list_notes",
			mcp.WithDescription("Lists the notes of the current session."),
			mcp.WithString("include_hidden",
				mcp.Description("Set to `true` to include hidden notes."),
			),
		)

		s.AddTool(tool, n.listHandler)
	}

	{
		tool := mcp.NewTool("read_note",
			mcp.WithDescription("Reads the title and content of a note."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Id of the note."),
			),
		)

		s.AddTool(tool, n.readHandler)
	}

	{
		tool := mcp.NewTool("new_note",
			mcp.WithDescription("Creates a note locally. It is created remotely on the next sync."),
			mcp.WithString("title",
				mcp.Description("Title of the note."),
			),
			mcp.WithString("content",
				mcp.Description("Content of the note."),
			),
		)

		s.AddTool(tool, n.newHandler)
	}

	{
		tool := mcp.NewTool("import_note",
			mcp.WithDescription(`Creates a note from a markdown document.

The following properties can be specified for frontmatter.

- `+"`title`"+`: 
 The title of the note.

- `+"`updated_at`"+`: 
 The time the note was updated.

- `+"`hidden`"+`: 
 Whether the note is hidden.`),
			mcp.WithString("document",
				mcp.Required(),
				mcp.Description("Markdown document with optional frontmatter."),
			),
		)

		s.AddTool(tool, n.importHandler)
	}

	{
		tool := mcp.NewTool("set_title",
			mcp.WithDescription("Changes the title of a note."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note.")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New title.")),
		)

		s.AddTool(tool, n.setTitleHandler)
	}

	{
		tool := mcp.NewTool("set_content",
			mcp.WithDescription("Replaces the content of a note."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note.")),
			mcp.WithString("content", mcp.Required(), mcp.Description("New content.")),
		)

		s.AddTool(tool, n.setContentHandler)
	}

	{
		tool := mcp.NewTool("set_hidden",
			mcp.WithDescription("Hides or shows a note."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note.")),
			mcp.WithString("hidden", mcp.Required(), mcp.Description("`true` to hide, `false` to show.")),
		)

		s.AddTool(tool, n.setHiddenHandler)
	}

	{
		tool := mcp.NewTool("sync_notes",
			mcp.WithDescription("Reconciles the local notes with the remote note service."),
		)

		s.AddTool(tool, n.syncHandler)
	}
}

func (n *NotesMCP) listHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes := n.session.VisibleNotes()
	if req.GetString("include_hidden", "false") == "true" {
		notes = n.session.Notes()
	}

	result := fmt.Sprintf("# notes (results: %d)\n", len(notes))

	for _, note := range notes {
		result += fmt.Sprintf("- `%s`: %s (%s)\n", note.ID, note.Title, note.UpdatedAt.Format(time.RFC3339))
	}

	return mcp.NewToolResultText(result), nil
}

func (n *NotesMCP) readHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := n.session.Note(core.NoteID(req.GetString("id", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatNote(note)), nil
}

func (n *NotesMCP) newHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := n.session.AddNote(core.Note{
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note `%s` has been created.", note.ID)), nil
}

func (n *NotesMCP) importHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parsed, err := core.ParseNote(strings.NewReader(req.GetString("document", "")), time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := n.session.AddNote(parsed)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note `%s` has been imported.", note.ID)), nil
}

func (n *NotesMCP) setTitleHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, err := n.session.SetTitle(core.NoteID(req.GetString("id", "")), req.GetString("title", ""))
	return editResult(err)
}

func (n *NotesMCP) setContentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, err := n.session.SetContent(core.NoteID(req.GetString("id", "")), req.GetString("content", ""))
	return editResult(err)
}

func (n *NotesMCP) setHiddenHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var hidden bool
	switch strings.ToLower(req.GetString("hidden", "")) {
	case "true", "yes", "1":
		hidden = true
	case "false", "no", "0":
		hidden = false
	default:
		return mcp.NewToolResultError("hidden must be `true` or `false`"), nil
	}

	_, err := n.session.SetHidden(core.NoteID(req.GetString("id", "")), hidden)
	return editResult(err)
}

func (n *NotesMCP) syncHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n.syncMu.Lock()
	defer n.syncMu.Unlock()

	notes, err := n.session.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Synced %d notes.", len(notes))), nil
}

func editResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, core.ErrNoteNotFound) {
		return mcp.NewToolResultError("note not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Note has been saved."), nil
}

func formatNote(note core.Note) string {
	return fmt.Sprintf("# %s\n\n- id: `%s`\n- updated_at: %s\n- hidden: %t\n\n%s\n",
		note.Title, note.ID, note.UpdatedAt.Format(time.RFC3339), note.IsHidden, note.Content)
}
