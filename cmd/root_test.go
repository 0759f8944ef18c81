package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ikasoba/notesync/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteService struct {
	mu       sync.Mutex
	notes    string
	requests []string
}

func newNoteService(t *testing.T, notes string) (*noteService, string) {
	t.Helper()

	svc := &noteService{notes: notes}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	return svc, srv.URL
}

func (s *noteService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path+" user="+r.Header.Get(core.UserIDHeader))
	s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users":
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 12, "username": "alice"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/notes":
		io.WriteString(w, s.notes)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *noteService) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.requests...)
}

// resetFlags restores every flag so runs do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}

	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)

	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func storedNotes(t *testing.T, home string) []core.Note {
	t.Helper()

	store, err := core.OpenStore(home)
	require.NoError(t, err)
	defer store.Close()

	notes, err := store.Load()
	require.NoError(t, err)
	return notes
}

const oneRemoteNote = `[{"id": 1, "title": "remote", "content": "r", "updated_at": "2025-03-01T12:00:00Z"}]`

func TestSyncCommand(t *testing.T) {
	svc, url := newNoteService(t, oneRemoteNote)
	home := t.TempDir()

	out, err := execute(t, "sync", "--home", home, "--api-url", url, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "Synced 1 notes\n", out)
	assert.Contains(t, svc.seen(), "GET /notes user=")

	notes := storedNotes(t, home)
	require.Len(t, notes, 1)
	assert.Equal(t, "remote", notes[0].Title)
}

func TestConfigFromEnvironment(t *testing.T) {
	svc, url := newNoteService(t, oneRemoteNote)
	home := t.TempDir()

	t.Setenv("NOTESYNC_HOME", home)
	t.Setenv("NOTESYNC_API_URL", url)
	t.Setenv("NOTESYNC_LOG_LEVEL", "error")

	out, err := execute(t, "sync")
	require.NoError(t, err)
	assert.Equal(t, "Synced 1 notes\n", out)
	assert.NotEmpty(t, svc.seen())
	assert.Len(t, storedNotes(t, home), 1)
}

func TestConfigFromFile(t *testing.T) {
	svc, url := newNoteService(t, `[]`)
	home := t.TempDir()

	config := fmt.Sprintf("api-url = %q\nwelcome = false\nlog-level = \"error\"\n", url)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(config), 0600))

	out, err := execute(t, "sync", "--home", home)
	require.NoError(t, err)

	// welcome disabled by the file, so nothing to seed
	assert.Equal(t, "Synced 0 notes\n", out)
	assert.Equal(t, []string{"GET /notes user="}, svc.seen())
}

func TestConfigFlagBeatsFile(t *testing.T) {
	svc, url := newNoteService(t, `[]`)
	home := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte("api-url = \"http://127.0.0.1:1\"\n"), 0600))

	_, err := execute(t, "sync", "--home", home, "--api-url", url, "--welcome=false", "--log-level", "error")
	require.NoError(t, err)
	assert.NotEmpty(t, svc.seen())
}

func TestConfigFileInvalid(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte("api-url = [\n"), 0600))

	_, err := execute(t, "list", "--home", home)
	assert.Error(t, err)
}

func TestRegisterCommand(t *testing.T) {
	svc, url := newNoteService(t, `[]`)
	home := t.TempDir()

	out, err := execute(t, "register", "alice", "--home", home, "--api-url", url)
	require.NoError(t, err)
	assert.Equal(t, "Registered as user 12\n", out)

	out, err = execute(t, "register", "bob", "--home", home, "--api-url", url)
	require.NoError(t, err)
	assert.Equal(t, "Registered as user 12\n", out)
	assert.Equal(t, []string{"POST /users user="}, svc.seen())

	_, err = execute(t, "sync", "--home", home, "--api-url", url, "--welcome=false", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, svc.seen(), "GET /notes user=12")

	_, err = execute(t, "register", "al", "--home", t.TempDir(), "--api-url", url)
	assert.ErrorIs(t, err, core.ErrInvalidUsername)
}

func TestLocalEditCommands(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, "new", "--home", home, "--title", "groceries", "--content", "milk")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	_, err = execute(t, "edit", id, "--home", home, "--title", "shopping")
	require.NoError(t, err)

	out, err = execute(t, "list", "--home", home)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "shopping")

	_, err = execute(t, "edit", id, "--home", home, "--hidden")
	require.NoError(t, err)

	out, err = execute(t, "list", "--home", home)
	require.NoError(t, err)
	assert.NotContains(t, out, "shopping")

	out, err = execute(t, "list", "--home", home, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "shopping")

	doc := filepath.Join(t.TempDir(), "idea.md")
	require.NoError(t, os.WriteFile(doc, []byte("---\ntitle: Imported idea\n---\nbody\n"), 0600))

	_, err = execute(t, "import", doc, "--home", home)
	require.NoError(t, err)

	notes := storedNotes(t, home)
	require.Len(t, notes, 2)
	assert.Equal(t, "Imported idea", notes[0].Title)
	assert.Equal(t, "body", notes[0].Content)
	assert.Equal(t, "shopping", notes[1].Title)
	assert.Equal(t, "milk", notes[1].Content)
	assert.True(t, notes[1].IsHidden)

	_, err = execute(t, "edit", "missing", "--home", home, "--title", "x")
	assert.ErrorIs(t, err, core.ErrNoteNotFound)
}
