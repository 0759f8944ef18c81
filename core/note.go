package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrCorruptSnapshot = errors.New("corrupt local snapshot")
)

// NoteID is the canonical note identifier. Remote ids arrive as JSON
// numbers and locally minted ids as strings; both decode to the same value.
type NoteID string

func (id *NoteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*id = NoteID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("note id %s: %w", data, err)
	}

	// 42 and 42.0 denote the same note.
	if i, err := n.Int64(); err == nil {
		*id = NoteID(strconv.FormatInt(i, 10))
		return nil
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("note id %s: %w", data, err)
	}

	*id = NoteID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

func (id NoteID) String() string {
	return string(id)
}

type Note struct {
	ID        NoteID
	Title     string
	Content   string
	UpdatedAt time.Time
	IsHidden  bool
}

// NoteFields is a partial note for updates. Nil fields are left untouched.
type NoteFields struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (f NoteFields) IsEmpty() bool {
	return f.Title == nil && f.Content == nil
}

// ParseTime accepts RFC 3339 timestamps with or without fractional seconds,
// plus the zone-less form some servers emit for timestamp columns.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// storedNote is the representation kept in the local store.
type storedNote struct {
	ID           NoteID `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
	IsHidden     bool   `json:"isHidden,omitempty"`
}

func toStored(n Note) storedNote {
	return storedNote{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339Nano),
		IsHidden:  n.IsHidden,
	}
}

func (s storedNote) toNote() (Note, error) {
	if s.ID == "" {
		return Note{}, errors.New("note without id")
	}

	raw := s.UpdatedAt
	if raw == "" {
		raw = s.LastModified
	}

	updatedAt, err := ParseTime(raw)
	if err != nil {
		return Note{}, fmt.Errorf("note %s: %w", s.ID, err)
	}

	return Note{
		ID:        s.ID,
		Title:     s.Title,
		Content:   s.Content,
		UpdatedAt: updatedAt,
		IsHidden:  s.IsHidden,
	}, nil
}

// remoteNote is the representation exchanged with the note service.
type remoteNote struct {
	ID        NoteID `json:"id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
	IsHidden  bool   `json:"is_hidden"`
}

func toRemote(n Note) remoteNote {
	r := remoteNote{
		ID:       n.ID,
		Title:    n.Title,
		Content:  n.Content,
		IsHidden: n.IsHidden,
	}

	if !n.UpdatedAt.IsZero() {
		r.UpdatedAt = n.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	return r
}

func (r remoteNote) toNote() (Note, error) {
	if r.ID == "" {
		return Note{}, errors.New("remote note without id")
	}

	updatedAt, err := ParseTime(r.UpdatedAt)
	if err != nil {
		return Note{}, fmt.Errorf("remote note %s: %w", r.ID, err)
	}

	return Note{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		UpdatedAt: updatedAt,
		IsHidden:  r.IsHidden,
	}, nil
}
