package session

import (
	"strings"
	"sync"
	"time"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/quality"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/topic"
)

// InterviewType selects the question style and prompt template.
type InterviewType string

const (
	Behavioral   InterviewType = "behavioral"
	Technical    InterviewType = "technical"
	SystemDesign InterviewType = "system-design"
	CaseStudy    InterviewType = "case-study"
)

// ParseInterviewType maps backend strings onto a known type, defaulting to behavioral.
func ParseInterviewType(s string) InterviewType {
	switch InterviewType(s) {
	case Technical:
		return Technical
	case SystemDesign:
		return SystemDesign
	case CaseStudy:
		return CaseStudy
	}
	return Behavioral
}

// Language is the spoken-language lock for a session.
type Language string

const (
	LangEN   Language = "en"
	LangZhTW Language = "zh-tw"
)

// Stage tracks interview progress. It only moves forward.
type Stage int

const (
	StageIntro Stage = iota
	StageQuestions
	StageWrapUp
	StageEnded
)

func (s Stage) String() string {
	switch s {
	case StageIntro:
		return "intro"
	case StageQuestions:
		return "questions"
	case StageWrapUp:
		return "wrap_up"
	case StageEnded:
		return "ended"
	}
	return "unknown"
}

// Profile carries read-only candidate inputs used for prompt rendering.
type Profile struct {
	Role            string
	Seniority       string
	Industry        string
	YearsExperience int
}

// Limits bounds the session's pacing counters.
type Limits struct {
	MinQuestions      int
	MaxQuestions      int
	MaxRepairTurns    int
	MaxSilenceRetries int
}

// DefaultLimits mirrors the production defaults.
func DefaultLimits() Limits {
	return Limits{MinQuestions: 3, MaxQuestions: 6, MaxRepairTurns: 3, MaxSilenceRetries: 3}
}

// maxRecentQuestions is how many previously-asked questions are retained for
// dedup context in the rendered prompt.
const maxRecentQuestions = 5

// State is the single mutable record of one interview call. All mutation goes
// through its mutex so the event path and the watchdog path never observe a
// partially-updated invariant.
type State struct {
	mu sync.Mutex

	sessionID     string
	interviewType InterviewType
	language      Language
	langLocked    bool
	profile       Profile
	limits        Limits
	topics        *topic.Tracker

	stage          Stage
	questionCount  int
	askedQuestions []string

	consecutiveFailures int
	repairTurns         int
	repairPending       bool
	lastGoodUtterance   string

	lastActivity   time.Time
	silenceRetries int
	userHasSpoken  bool

	overPraiseCount int
}

// New constructs session state. An empty language means "not locked yet"; the
// first usable utterance locks it via LockLanguage.
func New(sessionID string, it InterviewType, lang Language, profile Profile, limits Limits, topics *topic.Tracker, now time.Time) *State {
	if limits.MaxQuestions < limits.MinQuestions {
		limits.MaxQuestions = limits.MinQuestions
	}
	if topics == nil {
		topics = topic.NewTracker(nil)
	}
	return &State{
		sessionID:     sessionID,
		interviewType: it,
		language:      lang,
		langLocked:    lang != "",
		profile:       profile,
		limits:        limits,
		topics:        topics,
		stage:         StageIntro,
		lastActivity:  now,
	}
}

func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *State) InterviewType() InterviewType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interviewType
}

// Language returns the spoken-language lock, defaulting to English while unlocked.
func (s *State) Language() Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.language == "" {
		return LangEN
	}
	return s.language
}

// LockLanguage fixes the spoken language once. Later calls are no-ops.
func (s *State) LockLanguage(lang Language) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.langLocked || lang == "" {
		return false
	}
	s.language = lang
	s.langLocked = true
	return true
}

func (s *State) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// AdvanceStage moves the stage forward. Backward moves are rejected and
// re-entering ended is a no-op; both return false.
func (s *State) AdvanceStage(to Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to <= s.stage {
		return false
	}
	s.stage = to
	return true
}

// Topics exposes the tracker; the tracker has its own locking.
func (s *State) Topics() *topic.Tracker { return s.topics }

// RecordQuestion increments the question count and retains the question text
// for dedup context. It refuses to exceed the configured maximum. The first
// question moves the stage from intro to questions.
func (s *State) RecordQuestion(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage == StageEnded || s.questionCount >= s.limits.MaxQuestions {
		return false
	}
	s.questionCount++
	s.askedQuestions = append(s.askedQuestions, strings.TrimSpace(text))
	if len(s.askedQuestions) > maxRecentQuestions {
		s.askedQuestions = s.askedQuestions[len(s.askedQuestions)-maxRecentQuestions:]
	}
	if s.stage == StageIntro {
		s.stage = StageQuestions
	}
	return true
}

func (s *State) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionCount
}

// NoteUserTurn updates activity and quality counters for one user utterance.
// Beyond the repair cap, bad input is accepted as-is so the conversation
// always makes forward progress.
func (s *State) NoteUserTurn(text string, verdict quality.Verdict, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userHasSpoken = true
	s.lastActivity = now
	if verdict == quality.Usable {
		s.consecutiveFailures = 0
		s.repairPending = false
		s.lastGoodUtterance = text
		return
	}
	s.consecutiveFailures++
	if s.repairTurns < s.limits.MaxRepairTurns {
		s.repairPending = true
	}
}

// RepairDue reports whether the watchdog should issue a repair prompt, along
// with the zero-based rotation index to use.
func (s *State) RepairDue() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.repairPending || s.repairTurns >= s.limits.MaxRepairTurns {
		return 0, false
	}
	return s.repairTurns, true
}

// NoteRepairIssued commits a successfully spoken repair prompt.
func (s *State) NoteRepairIssued(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairPending = false
	s.repairTurns++
	s.lastActivity = now
}

// SilenceNudgeDue reports whether a silence nudge should be issued now, with
// the rotation index. Nudges require at least one prior user turn.
func (s *State) SilenceNudgeDue(now time.Time, timeout time.Duration) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.userHasSpoken || s.stage == StageEnded {
		return 0, false
	}
	if s.silenceRetries >= s.limits.MaxSilenceRetries {
		return 0, false
	}
	if now.Sub(s.lastActivity) < timeout {
		return 0, false
	}
	return s.silenceRetries, true
}

// NoteNudgeIssued commits a spoken silence nudge and resets the activity
// clock so nudges cannot storm.
func (s *State) NoteNudgeIssued(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silenceRetries++
	s.lastActivity = now
}

// WrapUpDue reports whether the minimum question count has been reached while
// still in the questions stage.
func (s *State) WrapUpDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage == StageQuestions && s.questionCount >= s.limits.MinQuestions
}

// NoteAssistantTurn audits generated speech for disallowed over-praise. The
// count is for post-hoc quality review only and drives no control flow.
func (s *State) NoteAssistantTurn(text string) {
	n := CountOverPraise(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overPraiseCount += n
}

func (s *State) OverPraiseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overPraiseCount
}

func (s *State) UserHasSpoken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userHasSpoken
}

func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RepairCapReached reports whether the repair budget is spent. Callers accept
// bad input as-is beyond the cap instead of dropping it.
func (s *State) RepairCapReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repairTurns >= s.limits.MaxRepairTurns
}

func (s *State) RepairTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repairTurns
}

func (s *State) SilenceRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.silenceRetries
}

func (s *State) LastGoodUtterance() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGoodUtterance
}

// Snapshot is a consistent copy of the fields the prompt builder renders.
type Snapshot struct {
	SessionID       string
	InterviewType   InterviewType
	Language        Language
	Profile         Profile
	Stage           Stage
	QuestionCount   int
	MinQuestions    int
	MaxQuestions    int
	AskedQuestions  []string
	CoveredTopics   []string
	RemainingTopics []string
}

// Snapshot captures everything the prompt builder needs in one locked read.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	lang := s.language
	if lang == "" {
		lang = LangEN
	}
	snap := Snapshot{
		SessionID:      s.sessionID,
		InterviewType:  s.interviewType,
		Language:       lang,
		Profile:        s.profile,
		Stage:          s.stage,
		QuestionCount:  s.questionCount,
		MinQuestions:   s.limits.MinQuestions,
		MaxQuestions:   s.limits.MaxQuestions,
		AskedQuestions: append([]string(nil), s.askedQuestions...),
	}
	s.mu.Unlock()
	snap.CoveredTopics = s.topics.Covered()
	snap.RemainingTopics = s.topics.Remaining()
	return snap
}
