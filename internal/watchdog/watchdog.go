package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/session"
)

// Speaker issues one spoken utterance through the room transport.
type Speaker interface {
	Speak(ctx context.Context, text string, allowInterruption bool) error
}

// Config bounds the watchdog's clocks.
type Config struct {
	TickInterval   time.Duration
	SilenceTimeout time.Duration
}

// DefaultConfig keeps the tick well under the smallest timeout it enforces.
func DefaultConfig() Config {
	return Config{TickInterval: 5 * time.Second, SilenceTimeout: 30 * time.Second}
}

// Watchdog periodically inspects session state and escalates: repair prompts
// for bad transcriptions, nudges on silence, a wrap-up announcement once the
// question minimum is met, and the forced close on the session time budget.
type Watchdog struct {
	cfg     Config
	state   *session.State
	speaker Speaker
	now     func() time.Time
}

func New(cfg Config, state *session.State, speaker Speaker) *Watchdog {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = 30 * time.Second
	}
	return &Watchdog{cfg: cfg, state: state, speaker: speaker, now: time.Now}
}

// Run ticks until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	t := time.NewTicker(w.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick re-evaluates all escalation triggers and issues at most one speech
// action. Repair takes priority over the silence nudge; a failed speak leaves
// state untouched so the same trigger fires again next tick.
func (w *Watchdog) Tick(ctx context.Context) {
	if w.state.Stage() == session.StageEnded {
		return
	}
	now := w.now()
	lang := w.state.Language()

	if n, ok := w.state.RepairDue(); ok {
		if err := w.speaker.Speak(ctx, session.RepairPrompt(lang, n), true); err != nil {
			log.Printf("watchdog: repair prompt failed: %v", err)
			return
		}
		w.state.NoteRepairIssued(now)
		return
	}

	if n, ok := w.state.SilenceNudgeDue(now, w.cfg.SilenceTimeout); ok {
		if err := w.speaker.Speak(ctx, session.SilencePrompt(lang, n), true); err != nil {
			log.Printf("watchdog: silence nudge failed: %v", err)
			return
		}
		w.state.NoteNudgeIssued(now)
		return
	}

	if w.state.WrapUpDue() {
		// The stage transition is the guard against repeating the announcement.
		if w.state.AdvanceStage(session.StageWrapUp) {
			if err := w.speaker.Speak(ctx, session.WrapUpLine(lang), true); err != nil {
				log.Printf("watchdog: wrap-up announcement failed: %v", err)
			}
		}
	}
}

// ForceClose ends the session unconditionally: it moves the stage to ended
// and speaks the closing statement without accepting interruption. Calling it
// on an already-ended session is a no-op. It reports whether the closing
// statement actually went out.
func (w *Watchdog) ForceClose(ctx context.Context) bool {
	if !w.state.AdvanceStage(session.StageEnded) {
		return false
	}
	if err := w.speaker.Speak(ctx, session.ClosingLine(w.state.Language()), false); err != nil {
		log.Printf("watchdog: closing statement failed: %v", err)
		return false
	}
	return true
}
