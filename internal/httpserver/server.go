package httpserver

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	agentmw "github.com/FATTY-BAMBA/ai-interview-coach/internal/middleware"
)

// Launcher runs one interview session for a room, returning when it ends.
type Launcher func(ctx context.Context, roomName string) error

// Registry tracks rooms with an active agent session.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]struct{})}
}

// Add registers a room; it reports false when the room is already active.
func (r *Registry) Add(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room]; ok {
		return false
	}
	r.rooms[room] = struct{}{}
	return true
}

func (r *Registry) Remove(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, room)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

type joinRequest struct {
	RoomName string `json:"room_name"`
}

// Server is the webhook surface that asks the agent to join rooms.
type Server struct {
	Router   *echo.Echo
	registry *Registry
	launch   Launcher
}

// New constructs the HTTP server with routes. Sessions started via /join-room
// run in the background under baseCtx, so shutting down the HTTP listener
// does not kill in-flight interviews.
func New(baseCtx context.Context, launch Launcher) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{Router: e, registry: NewRegistry(), launch: launch}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":       "healthy",
			"active_rooms": s.registry.Count(),
		})
	})

	e.POST("/join-room", func(c echo.Context) error {
		var req joinRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
		room := strings.TrimSpace(req.RoomName)
		if room == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "room_name required"})
		}
		if !s.registry.Add(room) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "agent already active in room"})
		}

		log.Printf("join request for room: %s", room)
		go func() {
			defer s.registry.Remove(room)
			if err := s.launch(baseCtx, room); err != nil {
				log.Printf("session for room %s failed: %v", room, err)
			}
		}()

		return c.JSON(http.StatusOK, map[string]any{"success": true, "room": room})
	})

	return s
}

// ActiveRooms exposes the registry count for diagnostics.
func (s *Server) ActiveRooms() int { return s.registry.Count() }

// UseWebhookAuth requires a valid body signature on join requests. Health
// checks stay unsigned.
func (s *Server) UseWebhookAuth(getSecret func() string) {
	s.Router.Use(agentmw.WebhookAuth("/join-room", getSecret))
}
