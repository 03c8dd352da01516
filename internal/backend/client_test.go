package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/session"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/transcript"
)

func TestLookupSession_ParsesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/interview/by-room/room-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session": map[string]any{
				"id":            "sess-1",
				"interviewType": "system-design",
				"language":      "zh-tw",
				"profile": map[string]any{
					"role":            "Backend Engineer",
					"seniority":       "senior",
					"yearsExperience": 7,
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	info, err := c.LookupSession(context.Background(), "room-42")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if info.SessionID != "sess-1" || info.InterviewType != session.SystemDesign || info.Language != session.LangZhTW {
		t.Fatalf("unexpected session info: %+v", info)
	}
	if info.Profile.Role != "Backend Engineer" || info.Profile.YearsExperience != 7 {
		t.Fatalf("unexpected profile: %+v", info.Profile)
	}
}

func TestLookupSession_Non200IsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.LookupSession(context.Background(), "no-room")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode() != 404 {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
}

func TestAppendTranscript_PostsJSON(t *testing.T) {
	var got transcript.Entry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/interview/transcript" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	e := transcript.Entry{SessionID: "sess-1", Role: "user", Text: "hello"}
	if err := c.AppendTranscript(context.Background(), e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got != e {
		t.Fatalf("server saw %+v, want %+v", got, e)
	}
}

func TestAppendTranscript_ServerErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.AppendTranscript(context.Background(), transcript.Entry{SessionID: "s", Role: "user", Text: "x"})
	var sc transcript.StatusCoder
	if !errors.As(err, &sc) || sc.StatusCode() != 502 {
		t.Fatalf("expected retryable status 502, got %v", err)
	}
}
