package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"doc-assistant/internal/extract"
	"doc-assistant/internal/llm"
	"doc-assistant/internal/prompts"
	"doc-assistant/internal/sessions"
	"doc-assistant/internal/shared/metrics"
	"doc-assistant/internal/shared/telemetry"
	"doc-assistant/internal/shared/util"
)

var (
	ErrNoDocument    = errors.New("no document uploaded")
	ErrEmptyQuestion = errors.New("question is required")
	ErrBusy          = errors.New("a generation is already running for this session")
	ErrNoFile        = errors.New("file is required")
)

// Generator is the part of llm.Client the controller depends on.
type Generator interface {
	Generate(ctx context.Context, instruction, documentText string) llm.Result
}

// Outcome is the rendered result of one generation action.
// Session is the snapshot whose document text was sent, so the result is shown under the right file.
type Outcome struct {
	Kind     prompts.Kind
	Question string
	Session  sessions.Session
	Result   llm.Result
}

// Controller owns the per-session document flow.
type Controller struct {
	Store    sessions.Store
	Catalog  *prompts.Catalog
	Gen      Generator
	Now      func() time.Time
	inflight inflight
}

// NewController constructs a Controller with the default prompt catalog when none is given.
func NewController(store sessions.Store, catalog *prompts.Catalog, gen Generator) *Controller {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &Controller{
		Store:   store,
		Catalog: catalog,
		Gen:     gen,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Current returns the session for id, or a fresh NoDocument session when it is unknown.
func (c *Controller) Current(ctx context.Context, sessionID string) (sessions.Session, error) {
	sess, err := c.Store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return sessions.New(sessionID, c.Now()), nil
		}
		return sessions.Session{}, err
	}
	return sess, nil
}

// Upload extracts the file once and replaces any retained text.
// On extraction failure nothing is retained and the session is back in NoDocument.
func (c *Controller) Upload(ctx context.Context, sessionID, fileName, mediaType string, r io.Reader) (sessions.Session, error) {
	if r == nil {
		return sessions.Session{}, ErrNoFile
	}
	sess, err := c.Current(ctx, sessionID)
	if err != nil {
		return sessions.Session{}, err
	}
	cleanName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return sessions.Session{}, ErrNoFile
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("read upload: %w", err)
	}
	metrics.IncDocumentUploaded()

	normalized := extract.NormalizeMediaType(mediaType, cleanName, raw)
	start := time.Now()
	text, extractErr := extract.ExtractTextFromBytes(ctx, raw, normalized, cleanName)
	fields := map[string]any{
		"session_id":  util.HashKey(sessionID)[:16],
		"file_name":   cleanName,
		"media_type":  normalized,
		"size_bytes":  len(raw),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if extractErr != nil {
		metrics.IncExtractionFailed()
		fields["error"] = extractErr.Error()
		telemetry.Warn("document.extract.failed", fields)

		reset := sess.Reset(c.Now())
		if err := c.Store.Save(ctx, reset); err != nil {
			return sessions.Session{}, err
		}
		return reset, extractErr
	}

	metrics.IncDocumentExtracted()
	fields["text_chars"] = len(text)
	telemetry.Info("document.extract", fields)

	now := c.Now()
	next := sess.WithDocument(sessions.Document{
		FileName:    cleanName,
		MediaType:   normalized,
		SizeBytes:   int64(len(raw)),
		Text:        text,
		ExtractedAt: now,
	}, now)
	if err := c.Store.Save(ctx, next); err != nil {
		return sessions.Session{}, err
	}
	return next, nil
}

// Analyze runs one of the fixed analyses against the retained text.
func (c *Controller) Analyze(ctx context.Context, sessionID string, kind prompts.Kind) (Outcome, error) {
	instruction, err := c.Catalog.Instruction(kind)
	if err != nil {
		return Outcome{}, err
	}
	sess, res, err := c.generate(ctx, sessionID, instruction)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: kind, Session: sess, Result: res}, nil
}

// Ask answers a free-form question about the retained text.
func (c *Controller) Ask(ctx context.Context, sessionID, question string) (Outcome, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return Outcome{}, ErrEmptyQuestion
	}
	sess, res, err := c.generate(ctx, sessionID, prompts.QuestionInstruction(q))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Question: q, Session: sess, Result: res}, nil
}

func (c *Controller) generate(ctx context.Context, sessionID, instruction string) (sessions.Session, llm.Result, error) {
	sess, err := c.Current(ctx, sessionID)
	if err != nil {
		return sessions.Session{}, llm.Result{}, err
	}
	if !sess.Ready() {
		return sess, llm.Result{}, ErrNoDocument
	}
	if !c.inflight.acquire(sessionID) {
		return sess, llm.Result{}, ErrBusy
	}
	defer c.inflight.release(sessionID)

	// A started call always runs to completion or failure.
	return sess, c.Gen.Generate(context.WithoutCancel(ctx), instruction, sess.Document.Text), nil
}

type inflight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func (f *inflight) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		f.active = make(map[string]struct{})
	}
	if _, ok := f.active[id]; ok {
		return false
	}
	f.active[id] = struct{}{}
	return true
}

func (f *inflight) release(id string) {
	f.mu.Lock()
	delete(f.active, id)
	f.mu.Unlock()
}
