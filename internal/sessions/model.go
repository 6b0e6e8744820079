package sessions

import (
	"errors"
	"time"
)

// State is the document state of a session.
type State string

const (
	StateNoDocument    State = "no_document"
	StateDocumentReady State = "document_ready"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Document is the retained extraction of the most recently uploaded file.
type Document struct {
	FileName    string    `json:"fileName"`
	MediaType   string    `json:"mediaType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Text        string    `json:"text"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// Session is the per-user context passed to every action.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Document  *Document `json:"document,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty session in StateNoDocument.
func New(id string, now time.Time) Session {
	return Session{
		ID:        id,
		State:     StateNoDocument,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Ready reports whether a document text is retained.
func (s Session) Ready() bool {
	return s.State == StateDocumentReady && s.Document != nil
}

// WithDocument replaces any retained document with doc.
func (s Session) WithDocument(doc Document, now time.Time) Session {
	d := doc
	s.Document = &d
	s.State = StateDocumentReady
	s.UpdatedAt = now
	return s
}

// Reset drops the retained document.
func (s Session) Reset(now time.Time) Session {
	s.Document = nil
	s.State = StateNoDocument
	s.UpdatedAt = now
	return s
}
