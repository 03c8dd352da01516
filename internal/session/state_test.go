package session

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/quality"
)

func newTestState() *State {
	return New("sess-1", Behavioral, LangEN, Profile{}, DefaultLimits(), nil, time.Now())
}

func TestStage_ForwardOnly(t *testing.T) {
	s := newTestState()
	if !s.AdvanceStage(StageQuestions) {
		t.Fatalf("intro -> questions should succeed")
	}
	if s.AdvanceStage(StageIntro) {
		t.Fatalf("stage must never regress")
	}
	if !s.AdvanceStage(StageWrapUp) || !s.AdvanceStage(StageEnded) {
		t.Fatalf("forward transitions should succeed")
	}
	if s.AdvanceStage(StageEnded) {
		t.Fatalf("entering ended twice must be a no-op")
	}
	if s.Stage() != StageEnded {
		t.Fatalf("expected ended, got %v", s.Stage())
	}
}

// Random interleavings of events and timer actions must never move the stage
// backward or push the question count past its maximum.
func TestStage_NoRegressionUnderRandomInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		s := newTestState()
		now := time.Now()
		prevStage := s.Stage()
		prevCount := 0
		for i := 0; i < 200; i++ {
			switch rng.Intn(6) {
			case 0:
				s.NoteUserTurn(fmt.Sprintf("answer %d", i), quality.Usable, now)
			case 1:
				s.NoteUserTurn("....", quality.Garbled, now)
			case 2:
				s.RecordQuestion(fmt.Sprintf("question %d?", i))
			case 3:
				if _, ok := s.RepairDue(); ok {
					s.NoteRepairIssued(now)
				}
			case 4:
				if s.WrapUpDue() {
					s.AdvanceStage(StageWrapUp)
				}
			case 5:
				s.AdvanceStage(StageEnded)
			}
			now = now.Add(time.Second)
			if st := s.Stage(); st < prevStage {
				t.Fatalf("trial %d: stage regressed %v -> %v", trial, prevStage, st)
			} else {
				prevStage = st
			}
			if c := s.QuestionCount(); c < prevCount {
				t.Fatalf("trial %d: question count decreased", trial)
			} else if c > DefaultLimits().MaxQuestions {
				t.Fatalf("trial %d: question count exceeded maximum: %d", trial, c)
			} else {
				prevCount = c
			}
		}
	}
}

func TestRecordQuestion_CapAndIntroTransition(t *testing.T) {
	s := newTestState()
	for i := 0; i < 10; i++ {
		s.RecordQuestion(fmt.Sprintf("q%d?", i))
	}
	if got := s.QuestionCount(); got != DefaultLimits().MaxQuestions {
		t.Fatalf("expected count capped at %d, got %d", DefaultLimits().MaxQuestions, got)
	}
	if s.Stage() != StageQuestions {
		t.Fatalf("first question should move intro -> questions, got %v", s.Stage())
	}
	if len(s.Snapshot().AskedQuestions) != maxRecentQuestions {
		t.Fatalf("expected only most recent %d questions retained", maxRecentQuestions)
	}
}

func TestRepair_CapStopsNewRepairs(t *testing.T) {
	s := newTestState()
	now := time.Now()
	issued := 0
	for i := 0; i < 5; i++ {
		s.NoteUserTurn("....", quality.Garbled, now)
		if _, ok := s.RepairDue(); ok {
			s.NoteRepairIssued(now)
			issued++
		}
	}
	if issued != DefaultLimits().MaxRepairTurns {
		t.Fatalf("expected exactly %d repairs, got %d", DefaultLimits().MaxRepairTurns, issued)
	}
	// Beyond the cap, bad input is accepted without a pending repair.
	s.NoteUserTurn("....", quality.Garbled, now)
	if _, ok := s.RepairDue(); ok {
		t.Fatalf("no repair should be due past the cap")
	}
}

func TestRepair_ClearedByUsableTurn(t *testing.T) {
	s := newTestState()
	now := time.Now()
	s.NoteUserTurn("....", quality.Garbled, now)
	s.NoteUserTurn("a proper answer about my team", quality.Usable, now)
	if _, ok := s.RepairDue(); ok {
		t.Fatalf("usable turn should clear the pending repair")
	}
	if got := s.LastGoodUtterance(); got != "a proper answer about my team" {
		t.Fatalf("unexpected last good utterance: %q", got)
	}
}

func TestSilenceNudge_TimingAndCap(t *testing.T) {
	s := newTestState()
	start := time.Now()
	timeout := 30 * time.Second

	// No nudges before the user has ever spoken.
	if _, ok := s.SilenceNudgeDue(start.Add(time.Hour), timeout); ok {
		t.Fatalf("nudge must not fire before first user turn")
	}

	s.NoteUserTurn("hello there", quality.Usable, start)
	nudges := 0
	now := start
	// Simulate 150s of pure silence in 1s ticks.
	for i := 0; i < 150; i++ {
		now = now.Add(time.Second)
		if _, ok := s.SilenceNudgeDue(now, timeout); ok {
			s.NoteNudgeIssued(now)
			nudges++
		}
	}
	if nudges != DefaultLimits().MaxSilenceRetries {
		t.Fatalf("expected exactly %d nudges, got %d", DefaultLimits().MaxSilenceRetries, nudges)
	}
}

func TestLanguageLock_Immutable(t *testing.T) {
	s := New("sess-2", Behavioral, "", Profile{}, DefaultLimits(), nil, time.Now())
	if s.Language() != LangEN {
		t.Fatalf("unlocked language should default to en")
	}
	if !s.LockLanguage(LangZhTW) {
		t.Fatalf("first lock should succeed")
	}
	if s.LockLanguage(LangEN) {
		t.Fatalf("second lock must be rejected")
	}
	if s.Language() != LangZhTW {
		t.Fatalf("language changed after lock")
	}

	// A language given at creation is locked from the start.
	s2 := newTestState()
	if s2.LockLanguage(LangZhTW) {
		t.Fatalf("creation-time language must not be overridable")
	}
}

func TestOverPraiseAudit(t *testing.T) {
	s := newTestState()
	s.NoteAssistantTurn("That's a perfect answer! Amazing! Tell me more.")
	s.NoteAssistantTurn("Thanks. What happened next?")
	if got := s.OverPraiseCount(); got != 2 {
		t.Fatalf("expected 2 flagged phrases, got %d", got)
	}
}

func TestParseInterviewType(t *testing.T) {
	if ParseInterviewType("technical") != Technical {
		t.Fatalf("technical not recognized")
	}
	if ParseInterviewType("nonsense") != Behavioral {
		t.Fatalf("unknown types should default to behavioral")
	}
}
