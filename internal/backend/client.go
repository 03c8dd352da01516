package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/session"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/transcript"
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string   { return fmt.Sprintf("backend returned status %d", e.Code) }
func (e *StatusError) StatusCode() int { return e.Code }

// Client talks to the interview backend API.
type Client struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
}

// New constructs a backend client with a bounded request timeout.
func New(baseURL, apiToken string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIToken:   apiToken,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// SessionInfo is the metadata resolved for a room at call start.
type SessionInfo struct {
	SessionID     string
	InterviewType session.InterviewType
	Language      session.Language
	Profile       session.Profile
}

type sessionResponse struct {
	Session struct {
		ID            string `json:"id"`
		InterviewType string `json:"interviewType"`
		Language      string `json:"language"`
		Profile       struct {
			Role            string `json:"role"`
			Seniority       string `json:"seniority"`
			Industry        string `json:"industry"`
			YearsExperience int    `json:"yearsExperience"`
		} `json:"profile"`
	} `json:"session"`
}

// LookupSession fetches session metadata by room name. Callers must fall back
// to generated defaults on any error; a lookup failure never fails the call.
func (c *Client) LookupSession(ctx context.Context, roomName string) (SessionInfo, error) {
	endpoint := fmt.Sprintf("%s/api/interview/by-room/%s", c.BaseURL, url.PathEscape(roomName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("failed to create session lookup request: %v", err)
	}
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("session lookup failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SessionInfo{}, &StatusError{Code: resp.StatusCode}
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return SessionInfo{}, fmt.Errorf("failed to decode session response: %v", err)
	}
	if sr.Session.ID == "" {
		return SessionInfo{}, fmt.Errorf("session response missing id")
	}

	var lang session.Language
	switch sr.Session.Language {
	case "en":
		lang = session.LangEN
	case "zh-tw", "zh-TW":
		lang = session.LangZhTW
	}
	return SessionInfo{
		SessionID:     sr.Session.ID,
		InterviewType: session.ParseInterviewType(sr.Session.InterviewType),
		Language:      lang,
		Profile: session.Profile{
			Role:            sr.Session.Profile.Role,
			Seniority:       sr.Session.Profile.Seniority,
			Industry:        sr.Session.Profile.Industry,
			YearsExperience: sr.Session.Profile.YearsExperience,
		},
	}, nil
}

// AppendTranscript posts one turn to the transcript endpoint. A nil return
// means the server accepted it with 200; other statuses surface as
// StatusError so the sink can decide retryability.
func (c *Client) AppendTranscript(ctx context.Context, e transcript.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode transcript entry: %v", err)
	}
	endpoint := c.BaseURL + "/api/interview/transcript"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create transcript request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcript post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}
