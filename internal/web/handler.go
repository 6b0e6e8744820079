package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/analysis"
	"doc-assistant/internal/extract"
	"doc-assistant/internal/llm"
	"doc-assistant/internal/prompts"
	"doc-assistant/internal/shared/server/middleware"
	"doc-assistant/internal/shared/server/respond"
)

// Handler wires the browser UI to the session controller.
type Handler struct {
	Ctrl         *analysis.Controller
	Markdown     *Markdown
	ProviderName string
}

// NewHandler constructs a Handler.
func NewHandler(ctrl *analysis.Controller, providerName string) *Handler {
	return &Handler{Ctrl: ctrl, Markdown: NewMarkdown(), ProviderName: providerName}
}

// RegisterRoutes attaches the page and form routes. generation wraps the routes that call the model.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, upload []gin.HandlerFunc, generation []gin.HandlerFunc) {
	rg.GET("/", h.index)
	rg.POST("/documents", chain(upload, h.upload)...)
	rg.POST("/analyses/:kind", chain(generation, h.analyze)...)
	rg.POST("/questions", chain(generation, h.ask)...)
}

func chain(mw []gin.HandlerFunc, final gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	out = append(out, mw...)
	return append(out, final)
}

func (h *Handler) index(c *gin.Context) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}
	respond.HTML(c, http.StatusOK, pageTemplate, view)
}

func (h *Handler) upload(c *gin.Context) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			h.pageError(c, http.StatusRequestEntityTooLarge, "too_large", "The uploaded file is too large.", view)
			return
		}
		h.pageError(c, http.StatusBadRequest, "validation_error", "Please choose a PDF or DOCX file.", view)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.pageError(c, http.StatusBadRequest, "validation_error", "Unable to read the uploaded file.", view)
		return
	}
	defer file.Close()

	sessionID := middleware.SessionIDFromContext(c)
	sess, err := h.Ctrl.Upload(c.Request.Context(), sessionID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	view = h.newPage(view.CSRFToken, sess)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNoFile):
			h.pageError(c, http.StatusBadRequest, "validation_error", "Please choose a PDF or DOCX file.", view)
		case errors.Is(err, extract.ErrUnsupportedType):
			h.pageError(c, http.StatusUnsupportedMediaType, "unsupported_type", "Error processing document: only PDF and DOCX files are supported.", view)
		case errors.Is(err, extract.ErrExtraction):
			h.pageError(c, http.StatusUnprocessableEntity, "extraction_failed", "Error processing document: "+err.Error(), view)
		case middleware.IsBodyTooLarge(err):
			h.pageError(c, http.StatusRequestEntityTooLarge, "too_large", "The uploaded file is too large.", view)
		default:
			h.pageError(c, http.StatusInternalServerError, "internal", "Unable to store the document.", view)
		}
		return
	}

	view.Notice = "Document successfully processed!"
	respond.HTML(c, http.StatusOK, pageTemplate, view)
}

func (h *Handler) analyze(c *gin.Context) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}
	kind, err := prompts.ParseKind(c.Param("kind"))
	if err != nil {
		h.pageError(c, http.StatusNotFound, "unknown_kind", "Unknown analysis.", view)
		return
	}
	c.Set(middleware.AnalysisKindKey, string(kind))
	view.activate(string(kind))

	out, err := h.Ctrl.Analyze(c.Request.Context(), middleware.SessionIDFromContext(c), kind)
	if err != nil {
		h.generationError(c, err, view)
		return
	}
	h.renderOutcome(c, view, out)
}

func (h *Handler) ask(c *gin.Context) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}
	c.Set(middleware.AnalysisKindKey, "question")
	question := c.PostForm("question")
	view.Question = question

	out, err := h.Ctrl.Ask(c.Request.Context(), middleware.SessionIDFromContext(c), question)
	if err != nil {
		h.generationError(c, err, view)
		return
	}
	h.renderOutcome(c, view, out)
}

func (h *Handler) renderOutcome(c *gin.Context, view pageView, out analysis.Outcome) {
	view = h.withOutcome(view, out)
	if !out.Result.OK() {
		// The page still renders so every other action stays available.
		respond.HTMLError(c, http.StatusBadGateway, "generation_failed", out.Result.Err.Error(), pageTemplate, view)
		return
	}
	respond.HTML(c, http.StatusOK, pageTemplate, view)
}

func (h *Handler) generationError(c *gin.Context, err error, view pageView) {
	switch {
	case errors.Is(err, analysis.ErrNoDocument):
		h.pageError(c, http.StatusConflict, "no_document", "Please upload a PDF or DOCX document first.", view)
	case errors.Is(err, analysis.ErrEmptyQuestion):
		h.pageError(c, http.StatusBadRequest, "validation_error", "Please enter a question about the document.", view)
	case errors.Is(err, analysis.ErrBusy):
		h.pageError(c, http.StatusConflict, "busy", "Another request for this document is still running. Please wait for it to finish.", view)
	case errors.Is(err, prompts.ErrUnknownKind):
		h.pageError(c, http.StatusNotFound, "unknown_kind", "Unknown analysis.", view)
	case errors.Is(err, llm.ErrGenerationFailed):
		h.pageError(c, http.StatusBadGateway, "generation_failed", err.Error(), view)
	default:
		h.pageError(c, http.StatusInternalServerError, "internal", "Unexpected server error.", view)
	}
}

func (h *Handler) loadPage(c *gin.Context) (pageView, bool) {
	sess, err := h.Ctrl.Current(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		view := h.newPage(middleware.CSRFTokenFromContext(c), sess)
		h.pageError(c, http.StatusInternalServerError, "session_unavailable", "Session storage is unavailable.", view)
		return pageView{}, false
	}
	return h.newPage(middleware.CSRFTokenFromContext(c), sess), true
}

func (h *Handler) pageError(c *gin.Context, status int, code, message string, view pageView) {
	view.Error = message
	respond.HTMLError(c, status, code, message, pageTemplate, view)
}

// RejectCSRF renders the page with a 403 for a missing or stale form token.
func (h *Handler) RejectCSRF(c *gin.Context) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}
	h.pageError(c, http.StatusForbidden, "csrf_invalid", "Your form expired. Please reload the page and try again.", view)
}

// RejectTooLarge renders the page with a 413.
func (h *Handler) RejectTooLarge(c *gin.Context) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}
	h.pageError(c, http.StatusRequestEntityTooLarge, "too_large", "The uploaded file is too large.", view)
}

// RateLimited renders the page with a 429.
func (h *Handler) RateLimited(c *gin.Context, retryAfterMs int) {
	view, ok := h.loadPage(c)
	if !ok {
		return
	}
	seconds := (retryAfterMs + 999) / 1000
	h.pageError(c, http.StatusTooManyRequests, "rate_limited", fmt.Sprintf("Too many requests. Please try again in %d seconds.", seconds), view)
}

// Panic renders a generic error page.
func (h *Handler) Panic(c *gin.Context) {
	respond.HTML(c, http.StatusInternalServerError, haltTemplate, haltView{
		Title:   appTitle,
		Message: "Unexpected server error.",
	})
}

// Halt renders the configuration error page for every route except health.
func Halt(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.HTMLError(c, http.StatusServiceUnavailable, "missing_configuration", message, haltTemplate, haltView{
			Title:   appTitle,
			Message: message,
		})
	}
}
