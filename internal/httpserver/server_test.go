package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func postJoin(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/join-room", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func TestJoinRoom_LaunchesSession(t *testing.T) {
	var mu sync.Mutex
	var launched []string
	release := make(chan struct{})
	s := New(context.Background(), func(ctx context.Context, room string) error {
		mu.Lock()
		launched = append(launched, room)
		mu.Unlock()
		<-release
		return nil
	})

	rec := postJoin(t, s, `{"room_name":"interview-7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(launched)
		mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(launched) != 1 || launched[0] != "interview-7" {
		t.Fatalf("unexpected launches: %v", launched)
	}
	close(release)
}

func TestJoinRoom_DuplicateIsConflict(t *testing.T) {
	release := make(chan struct{})
	s := New(context.Background(), func(ctx context.Context, room string) error {
		<-release
		return nil
	})

	if rec := postJoin(t, s, `{"room_name":"busy-room"}`); rec.Code != http.StatusOK {
		t.Fatalf("first join failed: %d", rec.Code)
	}
	if rec := postJoin(t, s, `{"room_name":"busy-room"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate join, got %d", rec.Code)
	}
	close(release)

	// After the session ends, the room can be joined again.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && s.ActiveRooms() != 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if rec := postJoin(t, s, `{"room_name":"busy-room"}`); rec.Code != http.StatusOK {
		t.Fatalf("rejoin after completion failed: %d", rec.Code)
	}
}

func TestJoinRoom_MissingRoomName(t *testing.T) {
	s := New(context.Background(), func(ctx context.Context, room string) error { return nil })
	if rec := postJoin(t, s, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := postJoin(t, s, `not-json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}
}

func TestHealth_ReportsActiveRooms(t *testing.T) {
	release := make(chan struct{})
	s := New(context.Background(), func(ctx context.Context, room string) error {
		<-release
		return nil
	})
	postJoin(t, s, `{"room_name":"r1"}`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status      string `json:"status"`
		ActiveRooms int    `json:"active_rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.ActiveRooms != 1 {
		t.Fatalf("unexpected health body: %+v", body)
	}
	close(release)
}
