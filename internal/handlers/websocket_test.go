package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Billy-Davies-2/seal-tracker/internal/pubsub"
)

func TestEventsWS(t *testing.T) {
	f := newFixture(t, true)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var event pubsub.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read first event: %v", err)
	}
	if event.Type != "connected" {
		t.Fatalf("expected connected event, got %q", event.Type)
	}

	if _, err := f.svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	for {
		var event pubsub.Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("connection ended before the refresh event: %v", err)
		}
		if event.Type == pubsub.EventDatasetRefreshed {
			if event.Payload["players"] != float64(4) {
				t.Errorf("unexpected payload %v", event.Payload)
			}
			return
		}
	}
}

func TestEventsWSRequiresUpgrade(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodGet, "/api/ws")
	if w.Code != http.StatusBadRequest {
		t.Errorf("plain GET: expected 400, got %d", w.Code)
	}
}
