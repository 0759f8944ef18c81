package core

import "net/url"

// NotePath returns the request path addressing a single note.
func NotePath(id NoteID) string {
	return "/notes/" + url.PathEscape(string(id))
}
