package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-42" || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("echoed request id: %q", got)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != seen.TraceID {
		t.Fatalf("echoed trace id: %q want %q", got, seen.TraceID)
	}
}

func TestAttachTraceContextReplacesUnsafeIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name      string
		requestID string
		traceID   string
		keep      bool
	}{
		{name: "plain tokens", requestID: "req-42.a_b:1", traceID: "4bf92f3577b34da6a3ce929d0e0e4736", keep: true},
		{name: "spaces and quotes", requestID: `x" onload="1`, traceID: "a b"},
		{name: "too long", requestID: strings.Repeat("a", 129), traceID: strings.Repeat("b", 200)},
		{name: "non ascii", requestID: "żądanie", traceID: "ślad"},
	}
	for _, tc := range cases {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-Id", tc.requestID)
		req.Header.Set("X-Trace-Id", tc.traceID)
		r.ServeHTTP(httptest.NewRecorder(), req)
		if seen == nil {
			t.Fatalf("%s: no trace data", tc.name)
		}
		kept := seen.RequestID == tc.requestID && seen.TraceID == tc.traceID
		if kept != tc.keep {
			t.Fatalf("%s: kept=%v want %v (got %+v)", tc.name, kept, tc.keep, seen)
		}
		if !tc.keep && (seen.RequestID == "" || seen.TraceID == "" || seen.RequestID == tc.requestID || seen.TraceID == tc.traceID) {
			t.Fatalf("%s: ids not regenerated: %+v", tc.name, seen)
		}
	}
}
