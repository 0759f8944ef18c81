package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteIDNormalization(t *testing.T) {
	tests := []struct {
		input string
		want  NoteID
	}{
		{`42`, "42"},
		{`"42"`, "42"},
		{`42.0`, "42"},
		{`" 42 "`, "42"},
		{`"welcome"`, "welcome"},
		{`1741000000000`, "1741000000000"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var id NoteID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNoteIDRejectsGarbage(t *testing.T) {
	var id NoteID
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	for _, s := range []string{
		"2025-03-01T12:30:00Z",
		"2025-03-01T12:30:00.000Z",
		"2025-03-01T13:30:00+01:00",
		"2025-03-01 12:30:00",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	got, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestRemoteNoteDecoding(t *testing.T) {
	var raw remoteNote
	err := json.Unmarshal([]byte(`{
		"id": 7,
		"title": "groceries",
		"content": "<p>milk</p>",
		"created_at": "2025-03-01T10:00:00.000Z",
		"updated_at": "2025-03-01T11:00:00.000Z",
		"deleted_at": null,
		"is_hidden": true
	}`), &raw)
	require.NoError(t, err)

	n, err := raw.toNote()
	require.NoError(t, err)

	assert.Equal(t, NoteID("7"), n.ID)
	assert.Equal(t, "groceries", n.Title)
	assert.True(t, n.IsHidden)
	assert.True(t, time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC).Equal(n.UpdatedAt))
}

func TestStoredNoteAcceptsLastModified(t *testing.T) {
	var stored storedNote
	require.NoError(t, json.Unmarshal([]byte(`{"id":"welcome","title":"Welcome","content":"","lastModified":"2025-03-01T12:00:00.000Z"}`), &stored))

	n, err := stored.toNote()
	require.NoError(t, err)
	assert.Equal(t, NoteID("welcome"), n.ID)
	assert.True(t, t0.Equal(n.UpdatedAt))
}
