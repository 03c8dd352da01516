package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/quality"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/session"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/transcript"
	"github.com/FATTY-BAMBA/ai-interview-coach/internal/watchdog"
)

// Phase tracks the transport lifecycle, distinct from the interview stage.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseGreeting
	PhaseLive
	PhaseClosing
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseGreeting:
		return "greeting"
	case PhaseLive:
		return "live"
	case PhaseClosing:
		return "closing"
	case PhaseDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Options tunes orchestrator behavior for one call.
type Options struct {
	RoomName        string
	ListenFirst     bool
	LangMode        string // "auto", "en" or "zh-tw"
	SessionLifetime time.Duration

	// Voices maps a locked language to the synthesis voice to switch to when
	// auto mode settles on that language.
	Voices map[session.Language]string

	// Greeting pacing; zero values take the production defaults.
	GreetDelay       time.Duration
	GreetFollowUp    time.Duration
	GreetMicTipDelay time.Duration
}

func (o *Options) normalize() {
	if o.SessionLifetime <= 0 {
		o.SessionLifetime = time.Hour
	}
	if o.GreetDelay <= 0 {
		o.GreetDelay = 2 * time.Second
	}
	if o.GreetFollowUp <= 0 {
		o.GreetFollowUp = 3 * time.Second
	}
	if o.GreetMicTipDelay <= 0 {
		o.GreetMicTipDelay = 5 * time.Second
	}
	if o.LangMode == "" {
		o.LangMode = "auto"
	}
}

type convTurn struct {
	Role string // "USER" or "ASSISTANT"
	Text string
}

// Orchestrator owns one interview call end to end: it wires transport events
// to the quality filter, topic tracker and session state, runs the escalation
// watchdog and transcript flush loop beside the event loop, and enforces the
// session time budget with a forced close.
type Orchestrator struct {
	transport Transport
	gen       Generator
	state     *session.State
	filter    *quality.Filter
	sink      *transcript.Sink
	wd        *watchdog.Watchdog
	archiver  Archiver
	opts      Options

	// speakMu serializes spoken output across the reply path, the greeting
	// task and the watchdog.
	speakMu sync.Mutex

	mu          sync.Mutex
	phase       Phase
	greetCancel context.CancelFunc
	history     []convTurn
	turnLog     []transcript.Entry
}

// New wires an orchestrator. The watchdog is constructed here so its speech
// actions go through the orchestrator's serialized Speak.
func New(transport Transport, gen Generator, state *session.State, filter *quality.Filter, sink *transcript.Sink, wdCfg watchdog.Config, archiver Archiver, opts Options) *Orchestrator {
	opts.normalize()
	if archiver == nil {
		archiver = nopArchiver{}
	}
	if filter == nil {
		filter = quality.NewFilter(quality.DefaultThresholds())
	}
	o := &Orchestrator{
		transport: transport,
		gen:       gen,
		state:     state,
		filter:    filter,
		sink:      sink,
		archiver:  archiver,
		opts:      opts,
	}
	o.wd = watchdog.New(wdCfg, state, o)
	return o
}

// Speak implements watchdog.Speaker; all spoken output funnels through here
// so utterances never overlap.
func (o *Orchestrator) Speak(ctx context.Context, text string, allowInterruption bool) error {
	o.speakMu.Lock()
	defer o.speakMu.Unlock()
	return o.transport.Speak(ctx, text, allowInterruption)
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// advancePhase moves to `to` only if the phase is still `from`, so a late
// greeting goroutine can never undo the closing transition.
func (o *Orchestrator) advancePhase(from, to Phase) {
	o.mu.Lock()
	if o.phase == from {
		o.phase = to
	}
	o.mu.Unlock()
}

// Run drives the call lifecycle: connect, greet, converse, wrap up, close,
// disconnect. It returns after teardown. Cancellation of ctx and expiry of
// the session budget both route through the forced-close path.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.setPhase(PhaseConnecting)
	if err := o.transport.Connect(ctx); err != nil {
		o.setPhase(PhaseDisconnected)
		return fmt.Errorf("failed to connect transport: %w", err)
	}
	log.Printf("session %s: connected to room %s", o.state.SessionID(), o.opts.RoomName)

	loopCtx, cancelLoops := context.WithCancel(context.Background())
	defer cancelLoops()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); o.sink.Run(loopCtx) }()
	go func() { defer wg.Done(); o.wd.Run(loopCtx) }()

	if !o.opts.ListenFirst {
		o.setPhase(PhaseGreeting)
		gctx, gcancel := context.WithCancel(loopCtx)
		o.mu.Lock()
		o.greetCancel = gcancel
		o.mu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.greetSequence(gctx)
			o.advancePhase(PhaseGreeting, PhaseLive)
		}()
	} else {
		o.setPhase(PhaseLive)
	}

	budget := time.NewTimer(o.opts.SessionLifetime)
	defer budget.Stop()

	items := o.transport.Items()
EVENT_LOOP:
	for {
		select {
		case <-ctx.Done():
			log.Printf("session %s: external cancellation", o.state.SessionID())
			break EVENT_LOOP
		case <-budget.C:
			log.Printf("session %s: time budget elapsed", o.state.SessionID())
			break EVENT_LOOP
		case item, ok := <-items:
			if !ok {
				log.Printf("session %s: transport closed item stream", o.state.SessionID())
				break EVENT_LOOP
			}
			o.handleItem(loopCtx, item)
		}
	}

	o.setPhase(PhaseClosing)
	o.cancelGreeting()

	// The closing statement must still go out after external cancellation, so
	// it gets its own bounded context.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if o.wd.ForceClose(closeCtx) {
		// The event loop is gone, so the transport's local assistant item is
		// never consumed; record the closing line directly.
		o.recordTurn("assistant", session.ClosingLine(o.state.Language()))
	}

	cancelLoops()
	wg.Wait()
	// Flush what the sink still holds, the closing line included.
	o.sink.Drain(closeCtx)
	closeCancel()

	o.archive()
	err := o.transport.Close()
	o.setPhase(PhaseDisconnected)
	log.Printf("session %s: %s interview ended", o.state.SessionID(), o.state.InterviewType())
	return err
}

// handleItem processes one conversation item. User items drive quality
// classification, topic tracking and reply generation; assistant items are
// the record of what was actually spoken in the room.
func (o *Orchestrator) handleItem(ctx context.Context, it Item) {
	text := strings.TrimSpace(it.Text)
	switch it.Role {
	case "assistant":
		if text == "" {
			return
		}
		o.state.NoteAssistantTurn(text)
		o.recordTurn("assistant", text)
	case "user":
		if text != "" {
			// A genuine user turn cancels any pending greeting so we don't
			// talk over someone who started early.
			o.cancelGreeting()
		}
		verdict := o.filter.Classify(text)
		if verdict == quality.Usable && o.opts.LangMode == "auto" {
			lang := session.DetectLanguage(text)
			if o.state.LockLanguage(lang) {
				o.selectVoice(lang)
			}
		}
		o.state.NoteUserTurn(text, verdict, time.Now())
		if verdict != quality.Usable {
			// Once the repair budget is spent, bad input is accepted as-is
			// so the conversation keeps moving.
			if text == "" || !o.state.RepairCapReached() {
				log.Printf("session %s: dropping %s user turn", o.state.SessionID(), verdict)
				return
			}
			log.Printf("session %s: accepting %s user turn past repair cap", o.state.SessionID(), verdict)
		}
		if tag, ok := o.state.Topics().Detect(text); ok {
			o.state.Topics().MarkCovered(tag)
		}
		o.recordTurn("user", text)
		o.reply(ctx, text)
	}
}

// reply asks the generation engine for the next interviewer turn and speaks
// it. Any failure is swallowed: state stays unchanged and the watchdog keeps
// the conversation moving.
func (o *Orchestrator) reply(ctx context.Context, userText string) {
	snap := o.state.Snapshot()
	if snap.Stage == session.StageEnded {
		return
	}
	instructions := session.BuildInstructions(snap)
	convo := o.conversationPrompt(userText)

	genCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	replyText, err := o.gen.Generate(genCtx, instructions, convo)
	cancel()
	if err != nil {
		log.Printf("session %s: generate failed: %v", o.state.SessionID(), err)
		return
	}
	replyText = strings.TrimSpace(replyText)
	if replyText == "" {
		return
	}
	if err := o.Speak(ctx, replyText, true); err != nil {
		log.Printf("session %s: speak failed: %v", o.state.SessionID(), err)
		return
	}
	o.appendExchange(userText, replyText)
	// Heuristic: a question mark means a question was asked. Known to
	// miscount rhetorical questions.
	if strings.ContainsAny(replyText, "?？") {
		o.state.RecordQuestion(replyText)
	}
}

// conversationPrompt formats prior turns plus the latest user text with
// [USER]/[ASSISTANT] labels; the last line is always the user.
func (o *Orchestrator) conversationPrompt(latestUser string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var b strings.Builder
	for _, t := range o.history {
		b.WriteString("[")
		b.WriteString(t.Role)
		b.WriteString("] ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	b.WriteString("[USER] ")
	b.WriteString(latestUser)
	return b.String()
}

func (o *Orchestrator) appendExchange(user, assistant string) {
	o.mu.Lock()
	o.history = append(o.history, convTurn{Role: "USER", Text: user})
	o.history = append(o.history, convTurn{Role: "ASSISTANT", Text: assistant})
	o.mu.Unlock()
}

// recordTurn is the single point where turns become durable: the bounded
// sink for the backend, and the in-memory log for the end-of-call archive.
func (o *Orchestrator) recordTurn(role, text string) {
	o.sink.Enqueue(o.state.SessionID(), role, text)
	o.mu.Lock()
	o.turnLog = append(o.turnLog, transcript.Entry{SessionID: o.state.SessionID(), Role: role, Text: text})
	o.mu.Unlock()
}

// selectVoice switches the transport to the configured voice for a freshly
// locked language, when the transport supports it.
func (o *Orchestrator) selectVoice(lang session.Language) {
	vs, ok := o.transport.(VoiceSelector)
	if !ok {
		return
	}
	if voice := o.opts.Voices[lang]; voice != "" {
		vs.SetVoice(voice)
		log.Printf("session %s: voice switched for %s", o.state.SessionID(), lang)
	}
}

func (o *Orchestrator) cancelGreeting() {
	o.mu.Lock()
	cancel := o.greetCancel
	o.greetCancel = nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// greetSequence speaks the scheduled greeting chain: greeting, a follow-up in
// the other language when the mode is auto, then a microphone tip if the user
// still hasn't produced a turn. The whole chain dies with its context.
func (o *Orchestrator) greetSequence(ctx context.Context) {
	if !sleepCtx(ctx, o.opts.GreetDelay) {
		return
	}
	it := o.state.InterviewType()
	if o.opts.LangMode == "auto" {
		o.say(ctx, session.Greeting(it, session.LangZhTW))
		if !sleepCtx(ctx, o.opts.GreetFollowUp) {
			return
		}
		if !o.state.UserHasSpoken() {
			o.say(ctx, session.Greeting(it, session.LangEN))
		}
	} else {
		o.say(ctx, session.Greeting(it, o.state.Language()))
		if !sleepCtx(ctx, o.opts.GreetFollowUp) {
			return
		}
	}
	if !sleepCtx(ctx, o.opts.GreetMicTipDelay) {
		return
	}
	if !o.state.UserHasSpoken() {
		o.say(ctx, session.MicTip)
	}
}

func (o *Orchestrator) say(ctx context.Context, text string) {
	if ctx.Err() != nil {
		return
	}
	if err := o.Speak(ctx, text, true); err != nil {
		log.Printf("session %s: greeting speak failed: %v", o.state.SessionID(), err)
	}
}

// archive renders the turn log into a plain-text artifact and uploads it.
// Best effort: failures are logged and never block teardown.
func (o *Orchestrator) archive() {
	o.mu.Lock()
	turns := append([]transcript.Entry(nil), o.turnLog...)
	o.mu.Unlock()
	if len(turns) == 0 {
		return
	}
	body := o.renderArchive(turns)
	key := fmt.Sprintf("%s/transcript-%s.txt", o.state.SessionID(), time.Now().UTC().Format("20060102-150405"))
	if err := o.archiver.Upload(key, "text/plain; charset=utf-8", body); err != nil {
		log.Printf("session %s: transcript archive upload failed: %v", o.state.SessionID(), err)
	}
}

func (o *Orchestrator) renderArchive(turns []transcript.Entry) []byte {
	snap := o.state.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "session: %s\ntype: %s\nstage: %s\nquestions: %d\n", snap.SessionID, snap.InterviewType, snap.Stage, snap.QuestionCount)
	if len(snap.CoveredTopics) > 0 {
		fmt.Fprintf(&b, "topics: %s\n", strings.Join(snap.CoveredTopics, ", "))
	}
	fmt.Fprintf(&b, "over-praise count: %d\n\n", o.state.OverPraiseCount())
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(t.Role), t.Text)
	}
	return []byte(b.String())
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
