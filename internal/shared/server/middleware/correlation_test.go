package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"doc-assistant/internal/shared/server/respond"
	"doc-assistant/internal/shared/telemetry"
)

func TestRequestIDReusesOnlyUsableInboundIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	cases := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{name: "absent", inbound: "", reused: false},
		{name: "plain", inbound: "req-42", reused: true},
		{name: "too long", inbound: strings.Repeat("a", maxRequestIDLen+1), reused: false},
		{name: "spaces", inbound: "req 42", reused: false},
		{name: "log injection", inbound: "req\"}\n{\"msg\":\"fake", reused: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set("X-Request-Id", tc.inbound)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			if got != resp.Body.String() {
				t.Fatalf("header %q and context %q differ", got, resp.Body.String())
			}
			if tc.reused && got != tc.inbound {
				t.Fatalf("expected inbound id reused, got %q", got)
			}
			if !tc.reused {
				if _, err := uuid.Parse(got); err != nil {
					t.Fatalf("expected generated uuid, got %q", got)
				}
			}
		})
	}
}

func TestErrorLogsCarrySessionReference(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	restore := telemetry.Configure(&logs, "info")
	defer restore()

	sessionID := uuid.NewString()
	router := gin.New()
	router.Use(RequestID(), Session(SessionConfig{}))
	router.POST("/questions", func(c *gin.Context) {
		respond.Error(c, http.StatusConflict, "no_document", "Please upload a document first", nil)
	})

	req := httptest.NewRequest(http.MethodPost, "/questions", nil)
	req.Header.Set("X-Request-Id", "req-7")
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: sessionID})
	router.ServeHTTP(httptest.NewRecorder(), req)

	var payload map[string]any
	line := strings.TrimSpace(logs.String())
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log %q: %v", line, err)
	}
	if payload["request_id"] != "req-7" {
		t.Fatalf("unexpected request_id %v", payload["request_id"])
	}
	if payload["session_id"] != SessionRef(sessionID) {
		t.Fatalf("expected session ref %s, got %v", SessionRef(sessionID), payload["session_id"])
	}
	if strings.Contains(logs.String(), sessionID) {
		t.Fatalf("raw session id leaked into logs: %s", logs.String())
	}
}
