package analysis

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"doc-assistant/internal/extract"
	"doc-assistant/internal/extract/extracttest"
	"doc-assistant/internal/llm"
	"doc-assistant/internal/prompts"
	"doc-assistant/internal/sessions"
	"doc-assistant/internal/shared/telemetry"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	docs    []string
	result  llm.Result
	block   chan struct{}
	started chan struct{}
	ctxErr  error
}

func (f *fakeGenerator) Generate(ctx context.Context, instruction, documentText string) llm.Result {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, instruction)
	f.docs = append(f.docs, documentText)
	f.ctxErr = ctx.Err()
	return f.result
}

func newTestController(t *testing.T, gen Generator) *Controller {
	t.Helper()
	restore := telemetry.Configure(&bytes.Buffer{}, "error")
	t.Cleanup(restore)
	return NewController(sessions.NewMemoryStore(time.Hour, nil), nil, gen)
}

func TestAnalyzeRequiresDocument(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "x"}}
	c := newTestController(t, gen)

	if _, err := c.Analyze(context.Background(), "s1", prompts.KindSummary); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if _, err := c.Ask(context.Background(), "s1", "What is it?"); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("expected no generation calls, got %d", len(gen.calls))
	}
}

func TestUploadThenAnalyzeUsesRetainedText(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "## Summary"}}
	c := newTestController(t, gen)
	ctx := context.Background()

	sess, err := c.Upload(ctx, "s1", "notes.docx", extract.MimeDOCX, bytes.NewReader(extracttest.Docx(t, "Alpha", "Beta")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if sess.State != sessions.StateDocumentReady || sess.Document.Text != "Alpha\nBeta\n" {
		t.Fatalf("unexpected session after upload: %+v", sess)
	}

	for _, kind := range prompts.Kinds() {
		out, err := c.Analyze(ctx, "s1", kind)
		if err != nil {
			t.Fatalf("analyze %s: %v", kind, err)
		}
		if !out.Result.OK() || out.Result.Text != "## Summary" || out.Kind != kind {
			t.Fatalf("unexpected outcome for %s: %+v", kind, out)
		}
		if !out.Session.Ready() || out.Session.Document.FileName != "notes.docx" {
			t.Fatalf("outcome must carry the session it read, got %+v", out.Session)
		}
	}
	if len(gen.calls) != len(prompts.Kinds()) {
		t.Fatalf("expected one call per kind, got %d", len(gen.calls))
	}
	for i, doc := range gen.docs {
		if doc != "Alpha\nBeta\n" {
			t.Fatalf("call %d got document %q", i, doc)
		}
	}
	summary, _ := prompts.Default().Instruction(prompts.KindSummary)
	if gen.calls[0] != summary {
		t.Fatalf("expected summary instruction first, got %q", gen.calls[0])
	}

	after, err := c.Current(ctx, "s1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if after.State != sessions.StateDocumentReady || after.Document.Text != "Alpha\nBeta\n" {
		t.Fatalf("analyses must not change session state: %+v", after)
	}
}

func TestReuploadReplacesText(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
	c := newTestController(t, gen)
	ctx := context.Background()

	if _, err := c.Upload(ctx, "s1", "a.docx", "", bytes.NewReader(extracttest.Docx(t, "first"))); err != nil {
		t.Fatalf("upload a: %v", err)
	}
	if _, err := c.Upload(ctx, "s1", "b.docx", "", bytes.NewReader(extracttest.Docx(t, "second"))); err != nil {
		t.Fatalf("upload b: %v", err)
	}
	if _, err := c.Analyze(ctx, "s1", prompts.KindKeyPoints); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if gen.docs[0] != "second\n" {
		t.Fatalf("expected latest document text, got %q", gen.docs[0])
	}
}

func TestFailedUploadRetainsNothing(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
	c := newTestController(t, gen)
	ctx := context.Background()

	if _, err := c.Upload(ctx, "s1", "a.docx", "", bytes.NewReader(extracttest.Docx(t, "first"))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	sess, err := c.Upload(ctx, "s1", "broken.pdf", extract.MimePDF, strings.NewReader("%PDF-1.4 not really"))
	if !errors.Is(err, extract.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if sess.State != sessions.StateNoDocument || sess.Document != nil {
		t.Fatalf("expected NoDocument after failed upload, got %+v", sess)
	}
	if _, err := c.Analyze(ctx, "s1", prompts.KindSummary); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	c := newTestController(t, &fakeGenerator{})
	_, err := c.Upload(context.Background(), "s1", "notes.txt", "text/plain", strings.NewReader("plain"))
	if !errors.Is(err, extract.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := c.Upload(context.Background(), "s1", "", "", nil); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestGenerationFailureKeepsSessionUsable(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Err: &llm.GenerationError{Provider: "fake", Cause: errors.New("rate limited")}}}
	c := newTestController(t, gen)
	ctx := context.Background()

	if _, err := c.Upload(ctx, "s1", "a.docx", "", bytes.NewReader(extracttest.Docx(t, "text"))); err != nil {
		t.Fatalf("upload: %v", err)
	}
	out, err := c.Analyze(ctx, "s1", prompts.KindSummary)
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}
	if out.Result.OK() || out.Result.Text != "" {
		t.Fatalf("expected failed result without text, got %+v", out.Result)
	}
	if !errors.Is(out.Result.Err, llm.ErrGenerationFailed) || out.Result.Err.Message() != "rate limited" {
		t.Fatalf("unexpected failure %v", out.Result.Err)
	}

	gen.result = llm.Result{Text: "answer"}
	ans, err := c.Ask(ctx, "s1", "  Who wrote it?  ")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !ans.Result.OK() || ans.Question != "Who wrote it?" {
		t.Fatalf("unexpected answer %+v", ans)
	}
	if gen.calls[1] != prompts.QuestionInstruction("Who wrote it?") {
		t.Fatalf("unexpected question instruction %q", gen.calls[1])
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "x"}}
	c := newTestController(t, gen)
	if _, err := c.Ask(context.Background(), "s1", "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestAnalyzeUnknownKind(t *testing.T) {
	c := newTestController(t, &fakeGenerator{})
	if _, err := c.Analyze(context.Background(), "s1", prompts.Kind("poem")); !errors.Is(err, prompts.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestOneGenerationInFlightPerSession(t *testing.T) {
	gen := &fakeGenerator{
		result:  llm.Result{Text: "done"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := newTestController(t, gen)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		if _, err := c.Upload(ctx, id, "a.docx", "", bytes.NewReader(extracttest.Docx(t, "text"))); err != nil {
			t.Fatalf("upload %s: %v", id, err)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Analyze(ctx, "s1", prompts.KindSummary)
		done <- err
	}()
	<-gen.started

	if _, err := c.Analyze(ctx, "s1", prompts.KindKeyPoints); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	other := make(chan error, 1)
	go func() {
		_, err := c.Ask(ctx, "s2", "question")
		other <- err
	}()
	<-gen.started

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	if err := <-other; err != nil {
		t.Fatalf("other session: %v", err)
	}
	if _, err := c.Analyze(ctx, "s1", prompts.KindKeyPoints); err != nil {
		t.Fatalf("expected guard to be released, got %v", err)
	}
}

func TestGenerationIgnoresClientCancellation(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "done"}}
	c := newTestController(t, gen)
	if _, err := c.Upload(context.Background(), "s1", "a.docx", "", bytes.NewReader(extracttest.Docx(t, "text"))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := c.Store
	c.Store = cancelOnGet{Store: store, cancel: cancel}
	out, err := c.Analyze(ctx, "s1", prompts.KindSummary)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !out.Result.OK() {
		t.Fatalf("expected success, got %v", out.Result.Err)
	}
	if gen.ctxErr != nil {
		t.Fatalf("generation context should not be canceled, got %v", gen.ctxErr)
	}
}

// cancelOnGet cancels the request context right after the session is loaded.
type cancelOnGet struct {
	sessions.Store
	cancel context.CancelFunc
}

func (s cancelOnGet) Get(ctx context.Context, id string) (sessions.Session, error) {
	sess, err := s.Store.Get(ctx, id)
	s.cancel()
	return sess, err
}
