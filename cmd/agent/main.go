package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/agent"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/archive"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/backend"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/config"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/httpserver"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/llm"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/quality"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/room"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/session"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/topic"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/transcript"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/watchdog"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	// Sessions outlive individual HTTP requests; they stop on process shutdown.
	sessionCtx, cancelSessions := context.WithCancel(context.Background())
	srv := httpserver.New(sessionCtx, newLauncher(cfg))
	if cfg.WebhookSecret != "" {
		srv.UseWebhookAuth(func() string { return cfg.WebhookSecret })
	} else {
		log.Println("Warning: WEBHOOK_SECRET not set - join requests are unauthenticated")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("agent webhook server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}

	// Cancelling the session context routes every live interview through its
	// forced-close path; give those closing statements a moment to go out.
	cancelSessions()
	for i := 0; i < 50 && srv.ActiveRooms() > 0; i++ {
		time.Sleep(100 * time.Millisecond)
	}
}

// newLauncher builds the per-room session factory: resolve metadata (or fall
// back to defaults), then wire transport, generator, sink, archive and the
// orchestrator for one call.
func newLauncher(cfg config.Config) httpserver.Launcher {
	be := backend.New(cfg.APIURL, cfg.APIToken)

	return func(ctx context.Context, roomName string) error {
		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		info, err := be.LookupSession(lookupCtx, roomName)
		cancel()
		if err != nil {
			log.Printf("session lookup for room %s failed, using defaults: %v", roomName, err)
			info = backend.SessionInfo{SessionID: uuid.NewString(), InterviewType: session.Behavioral}
		}

		// The config language mode overrides backend metadata; "auto" defers
		// the lock to the first usable utterance.
		lang := info.Language
		langMode := cfg.LangMode
		switch cfg.LangMode {
		case "en":
			lang = session.LangEN
		case "zh-tw":
			lang = session.LangZhTW
		default:
			if lang != "" {
				langMode = string(lang)
			}
		}

		limits := session.Limits{
			MinQuestions:      cfg.MinQuestions,
			MaxQuestions:      cfg.MaxQuestions,
			MaxRepairTurns:    cfg.MaxRepairTurns,
			MaxSilenceRetries: cfg.MaxSilenceRetries,
		}
		st := session.New(info.SessionID, info.InterviewType, lang, info.Profile, limits, topic.NewTracker(nil), time.Now())

		voice := cfg.TTSVoiceEN
		if lang == session.LangZhTW {
			voice = cfg.TTSVoiceZhTW
		}
		transport := room.NewClient(cfg.RoomWSURL, cfg.APIToken, roomName, voice)
		gen := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.LLMModel)
		sink := transcript.NewSink(be)
		filter := quality.NewFilter(quality.Thresholds{
			MinChars:            cfg.MinTranscriptChars,
			MinMeaningfulTokens: cfg.MinMeaningfulTokens,
			MaxGarbledRatio:     cfg.GarbledMaxRatio,
		})

		var archiver agent.Archiver
		if store, err := archive.New(archive.Config{URL: cfg.SupabaseURL, ServiceRoleKey: cfg.SupabaseServiceKey, Bucket: cfg.SupabaseBucket}); err != nil {
			log.Printf("transcript archiving disabled for room %s: %v", roomName, err)
		} else {
			archiver = store
		}

		o := agent.New(transport, gen, st, filter, sink,
			watchdog.Config{TickInterval: cfg.WatchdogTick, SilenceTimeout: cfg.SilenceTimeout},
			archiver,
			agent.Options{
				RoomName:        roomName,
				ListenFirst:     cfg.ListenFirst,
				LangMode:        langMode,
				SessionLifetime: cfg.SessionLifetime,
				Voices: map[session.Language]string{
					session.LangEN:   cfg.TTSVoiceEN,
					session.LangZhTW: cfg.TTSVoiceZhTW,
				},
			})
		return o.Run(ctx)
	}
}
