package core

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

type importHeader struct {
	Title     string `yaml:"title" toml:"title" json:"title"`
	UpdatedAt any    `yaml:"updated_at" toml:"updated_at" json:"updated_at"`
	Hidden    bool   `yaml:"hidden" toml:"hidden" json:"hidden"`
}

// ParseNote reads a markdown document with an optional frontmatter header.
// The header may set title, updated_at and hidden; the body becomes the
// content. The returned note has no id.
func ParseNote(r io.Reader, now time.Time) (Note, error) {
	var header importHeader

	body, err := frontmatter.Parse(r, &header)
	if err != nil {
		return Note{}, fmt.Errorf("parse note: %w", err)
	}

	updatedAt, err := headerTime(header.UpdatedAt, now)
	if err != nil {
		return Note{}, fmt.Errorf("parse note: %w", err)
	}

	return Note{
		Title:     strings.TrimSpace(header.Title),
		Content:   strings.TrimSpace(string(body)),
		UpdatedAt: updatedAt,
		IsHidden:  header.Hidden,
	}, nil
}

// headerTime accepts a quoted timestamp or a native TOML/YAML datetime.
func headerTime(v any, fallback time.Time) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return fallback, nil
	case time.Time:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return fallback, nil
		}
		return ParseTime(t)
	default:
		return time.Time{}, fmt.Errorf("updated_at: unsupported value %v", v)
	}
}
