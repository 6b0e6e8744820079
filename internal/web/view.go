package web

import (
	"html/template"

	"doc-assistant/internal/analysis"
	"doc-assistant/internal/prompts"
	"doc-assistant/internal/sessions"
)

const (
	pageTemplate = "page.html"
	haltTemplate = "halt.html"

	appTitle = "Document Analysis Assistant"
)

type pageView struct {
	Title     string
	CSRFToken string
	Provider  string
	Document  *documentView
	Tabs      []tabView
	Question  string
	Answer    *resultView
	Notice    string
	Error     string
}

type documentView struct {
	FileName  string
	MediaType string
	Chars     int
}

type tabView struct {
	Kind   string
	Label  string
	Button string
	Active bool
	Result *resultView
}

type resultView struct {
	HTML  template.HTML
	Error string
}

type haltView struct {
	Title   string
	Message string
}

func (h *Handler) newPage(csrfToken string, sess sessions.Session) pageView {
	view := pageView{
		Title:     appTitle,
		CSRFToken: csrfToken,
		Provider:  h.ProviderName,
	}
	view.Document = documentFor(sess)
	for i, kind := range prompts.Kinds() {
		view.Tabs = append(view.Tabs, tabView{
			Kind:   string(kind),
			Label:  kind.Label(),
			Button: kind.ButtonLabel(),
			Active: i == 0,
		})
	}
	return view
}

func documentFor(sess sessions.Session) *documentView {
	if !sess.Ready() {
		return nil
	}
	return &documentView{
		FileName:  sess.Document.FileName,
		MediaType: sess.Document.MediaType,
		Chars:     len([]rune(sess.Document.Text)),
	}
}

// withOutcome places a generation result under its tab or as the question answer.
// The document line follows the session the result was generated from.
func (h *Handler) withOutcome(view pageView, out analysis.Outcome) pageView {
	if out.Session.Ready() {
		view.Document = documentFor(out.Session)
	}
	res := &resultView{}
	if out.Result.OK() {
		res.HTML = h.Markdown.Render(out.Result.Text)
	} else {
		res.Error = "Error getting response: " + out.Result.Err.Message()
	}
	if out.Question != "" {
		view.Question = out.Question
		view.Answer = res
		return view
	}
	view.activate(string(out.Kind))
	for i := range view.Tabs {
		if view.Tabs[i].Kind == string(out.Kind) {
			view.Tabs[i].Result = res
		}
	}
	return view
}

func (v *pageView) activate(kind string) {
	found := false
	for i := range v.Tabs {
		if v.Tabs[i].Kind == kind {
			found = true
		}
	}
	if !found {
		return
	}
	for i := range v.Tabs {
		v.Tabs[i].Active = v.Tabs[i].Kind == kind
	}
}
