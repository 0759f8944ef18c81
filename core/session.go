package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrInvalidUsername = errors.New("username must be at least 3 characters")

const WelcomeNoteID NoteID = "welcome"

// LocalStore persists the whole note collection.
type LocalStore interface {
	Load() ([]Note, error)
	Save(notes []Note) error
	HasSnapshot() (bool, error)
}

// NoteSource fetches the remote snapshot.
type NoteSource interface {
	FetchAll(ctx context.Context) ([]Note, error)
}

// Registrar creates the remote user and keeps its identifier.
type Registrar interface {
	CreateUser(ctx context.Context, username string) (*User, error)
}

type CredentialStore interface {
	UserID() string
	SetUserID(id string) error
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

func WithWelcomeNote(enabled bool) SessionOption {
	return func(s *Session) {
		s.welcome = enabled
	}
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session holds the in-memory note collection of one client run.
type Session struct {
	store  LocalStore
	source NoteSource
	engine *Engine

	logger  *slog.Logger
	now     func() time.Time
	welcome bool

	mu    sync.Mutex
	notes []Note

	// set when a failed fetch left the session empty; the stored
	// snapshot is pulled back in before the first local edit
	degraded bool
}

func NewSession(store LocalStore, source NoteSource, engine *Engine, opts ...SessionOption) *Session {
	s := &Session{
		store:  store,
		source: source,
		engine: engine,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register creates the remote user once and persists its identifier.
// An already registered client keeps its identifier.
func Register(ctx context.Context, reg Registrar, creds CredentialStore, username string) (string, error) {
	if id := creds.UserID(); id != "" {
		return id, nil
	}

	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return "", ErrInvalidUsername
	}

	user, err := reg.CreateUser(ctx, username)
	if err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", errors.New("create user: response without id")
	}

	if err := creds.SetUserID(string(user.ID)); err != nil {
		return "", fmt.Errorf("persist user id: %w", err)
	}

	return string(user.ID), nil
}

// Load runs the reconciliation pass for this session. A failed fetch
// degrades to an empty session instead of returning an error.
func (s *Session) Load(ctx context.Context) ([]Note, error) {
	remote, err := s.source.FetchAll(ctx)
	if err != nil {
		s.logger.Error("failed to fetch remote notes", "error", err)
		s.set([]Note{})
		s.mu.Lock()
		s.degraded = true
		s.mu.Unlock()
		return []Note{}, nil
	}

	local, err := s.store.Load()
	if errors.Is(err, ErrCorruptSnapshot) {
		s.logger.Warn("ignoring unreadable local notes", "error", err)
		local = []Note{}
	} else if err != nil {
		return nil, err
	}

	if s.welcome {
		local, err = s.seedWelcome(remote, local)
		if err != nil {
			return nil, err
		}
	}

	merged := s.engine.Reconcile(ctx, remote, local)
	s.set(merged)

	if err := s.store.Save(merged); err != nil {
		return nil, fmt.Errorf("save merged notes: %w", err)
	}

	return s.Notes(), nil
}

// LoadLocal fills the session from the local store alone, without a
// reconciliation pass.
func (s *Session) LoadLocal() ([]Note, error) {
	local, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	s.set(local)
	return s.Notes(), nil
}

// seedWelcome adds the welcome note on a first run. A client joining an
// account that already has notes gets nothing, so a stamped welcome note
// can never overwrite a remote one.
func (s *Session) seedWelcome(remote, local []Note) ([]Note, error) {
	if len(local) > 0 || len(remote) > 0 {
		return local, nil
	}

	exists, err := s.store.HasSnapshot()
	if err != nil {
		return nil, err
	}
	if exists {
		return local, nil
	}

	return []Note{{
		ID:        WelcomeNoteID,
		Title:     "Welcome to Notes",
		Content:   "<p>Welcome to your minimalist note-taking app!</p><p>Create a new note to get started, or edit this one.</p>",
		UpdatedAt: s.now(),
	}}, nil
}

func (s *Session) set(notes []Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = append([]Note(nil), notes...)
	s.degraded = false
}

// restore brings back the stored notes of a degraded session so a local
// edit does not overwrite them. Callers hold s.mu.
func (s *Session) restore() {
	if !s.degraded {
		return
	}
	s.degraded = false

	local, err := s.store.Load()
	if err != nil {
		s.logger.Warn("ignoring unreadable local notes", "error", err)
		return
	}
	s.notes = local
}

// Notes returns a copy of the current collection.
func (s *Session) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Note{}, s.notes...)
}

func (s *Session) VisibleNotes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := []Note{}
	for _, n := range s.notes {
		if !n.IsHidden {
			visible = append(visible, n)
		}
	}
	return visible
}

func (s *Session) Note(id NoteID) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return Note{}, ErrNoteNotFound
}

// NewNote adds a blank note at the front of the collection.
func (s *Session) NewNote() (Note, error) {
	return s.AddNote(Note{})
}

// AddNote adds a note under a fresh id. A note without UpdatedAt is
// stamped now.
func (s *Session) AddNote(n Note) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restore()

	now := s.now()
	n.ID = s.mintID(now)
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = now
	}

	s.notes = append([]Note{n}, s.notes...)

	if err := s.store.Save(s.notes); err != nil {
		return Note{}, err
	}
	return n, nil
}

// mintID derives an id from the creation time in milliseconds, bumped
// past any id already in use.
func (s *Session) mintID(now time.Time) NoteID {
	ms := now.UnixMilli()
	for {
		id := NoteID(strconv.FormatInt(ms, 10))
		if !s.has(id) {
			return id
		}
		ms++
	}
}

func (s *Session) has(id NoteID) bool {
	for _, n := range s.notes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) SetTitle(id NoteID, title string) (Note, error) {
	return s.edit(id, func(n *Note) { n.Title = title })
}

func (s *Session) SetContent(id NoteID, content string) (Note, error) {
	return s.edit(id, func(n *Note) { n.Content = content })
}

func (s *Session) SetHidden(id NoteID, hidden bool) (Note, error) {
	return s.edit(id, func(n *Note) { n.IsHidden = hidden })
}

func (s *Session) edit(id NoteID, mutate func(*Note)) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restore()

	for i := range s.notes {
		if s.notes[i].ID != id {
			continue
		}

		mutate(&s.notes[i])

		// UpdatedAt never moves backwards, even if the clock does.
		now := s.now()
		if now.After(s.notes[i].UpdatedAt) {
			s.notes[i].UpdatedAt = now
		}

		if err := s.store.Save(s.notes); err != nil {
			return Note{}, err
		}
		return s.notes[i], nil
	}

	return Note{}, ErrNoteNotFound
}
