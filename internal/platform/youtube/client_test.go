package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, body string) Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("channelId") != "UCsejm" || q.Get("eventType") != "live" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), logger.Nop(), Config{ChannelID: "UCsejm"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCurrentBroadcastLive(t *testing.T) {
	c := newTestClient(t, `{"items":[{"id":{"kind":"youtube#video","videoId":"abc123"},"snippet":{"title":"Posiedzenie Sejmu","publishedAt":"2024-03-05T09:00:00Z"}}]}`)
	b, err := c.CurrentBroadcast(context.Background())
	if err != nil {
		t.Fatalf("CurrentBroadcast: %v", err)
	}
	if b == nil || b.VideoID != "abc123" || b.Title != "Posiedzenie Sejmu" || b.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected broadcast: %+v", b)
	}
}

func TestCurrentBroadcastOffline(t *testing.T) {
	c := newTestClient(t, `{"items":[]}`)
	b, err := c.CurrentBroadcast(context.Background())
	if err != nil {
		t.Fatalf("CurrentBroadcast: %v", err)
	}
	if b != nil {
		t.Fatalf("expected no broadcast, got %+v", b)
	}
}
