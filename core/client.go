package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	UserIDHeader    = "x-user-id"
	RequestIDHeader = "x-request-id"
)

// Credentials supplies the opaque user identifier that scopes note requests.
// An empty identifier means the request goes out unscoped.
type Credentials interface {
	UserID() string
}

// StaticUserID is a fixed credential.
type StaticUserID string

func (s StaticUserID) UserID() string {
	return string(s)
}

type User struct {
	ID       NoteID `json:"id"`
	Username string `json:"username"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the remote note service.
type Client struct {
	BaseURL string
	creds   Credentials
	http    *http.Client
}

func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateUser sends POST /users
func (c *Client) CreateUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/users", map[string]string{"username": username}, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// FetchAll sends GET /notes
func (c *Client) FetchAll(ctx context.Context) ([]Note, error) {
	var raw []remoteNote
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}

	notes := make([]Note, 0, len(raw))
	for _, r := range raw {
		n, err := r.toNote()
		if err != nil {
			return nil, fmt.Errorf("fetch notes: %w", err)
		}
		notes = append(notes, n)
	}

	return notes, nil
}

// Create sends POST /notes
func (c *Client) Create(ctx context.Context, note Note) (*Note, error) {
	var created remoteNote
	if err := c.do(ctx, http.MethodPost, "/notes", toRemote(note), &created); err != nil {
		return nil, fmt.Errorf("create note %s: %w", note.ID, err)
	}

	// Some servers answer 201 with an empty body.
	if created.ID == "" {
		return &note, nil
	}

	n, err := created.toNote()
	if err != nil {
		return nil, fmt.Errorf("create note %s: %w", note.ID, err)
	}

	return &n, nil
}

// Update sends PATCH /notes/{id}
func (c *Client) Update(ctx context.Context, id NoteID, fields NoteFields) error {
	if err := c.do(ctx, http.MethodPatch, NotePath(id), fields, nil); err != nil {
		return fmt.Errorf("update note %s: %w", id, err)
	}
	return nil
}

// Delete sends DELETE /notes/{id}
func (c *Client) Delete(ctx context.Context, id NoteID) error {
	if err := c.do(ctx, http.MethodDelete, NotePath(id), nil, nil); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if id := c.creds.UserID(); id != "" {
			req.Header.Set(UserIDHeader, id)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
