package session

import (
	"fmt"
	"strings"
)

// maxPromptTopics bounds how many remaining topics are surfaced to the
// generation engine per render.
const maxPromptTopics = 3

// personas describes the interviewer role and question style per interview type.
var personas = map[InterviewType]string{
	Behavioral: `You are an experienced interview coach conducting a behavioral interview.
- Ask thoughtful STAR-method questions (Situation, Task, Action, Result)
- Focus on past experiences and how the candidate handled situations
- Listen actively and ask relevant follow-up questions`,
	Technical: `You are a senior software engineer conducting a technical interview.
- Ask coding and algorithm questions appropriate for the candidate's level
- Start with easier warm-up questions, progress to medium difficulty
- Focus on problem-solving approach, not just the answer
- Ask about time and space complexity`,
	SystemDesign: `You are a principal engineer conducting a system design interview.
- Ask open-ended system design questions
- Focus on scalability, reliability, and trade-offs
- Encourage the candidate to ask clarifying questions
- Discuss database choices, caching, load balancing`,
	CaseStudy: `You are a management consultant conducting a case study interview.
- Present business problems and analytical challenges
- Focus on structured thinking and problem-solving approach
- Discuss market sizing, profitability, strategy`,
}

var languageNames = map[Language]string{
	LangEN:   "natural professional English",
	LangZhTW: "Traditional Chinese (繁體中文) with Taiwan wording",
}

// OverPraisePhrases are disallowed in generated speech. They are rendered
// into the prompt as a prohibition and counted post-hoc for quality audit.
var OverPraisePhrases = []string{
	"amazing!", "incredible!", "fantastic!", "perfect answer", "brilliant!",
	"太棒了", "超級厲害", "完美的答案", "太厲害了",
}

// CountOverPraise returns how many disallowed praise phrases appear in text.
func CountOverPraise(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, p := range OverPraisePhrases {
		n += strings.Count(lower, strings.ToLower(p))
	}
	return n
}

// BuildInstructions renders session state into the instruction text for the
// generation engine. It is pure: same snapshot, same text.
func BuildInstructions(snap Snapshot) string {
	var b strings.Builder

	persona, ok := personas[snap.InterviewType]
	if !ok {
		persona = personas[Behavioral]
	}
	b.WriteString(persona)
	b.WriteString("\n\n")

	langName := languageNames[snap.Language]
	if langName == "" {
		langName = languageNames[LangEN]
	}
	fmt.Fprintf(&b, "Language Rules:\n- Speak only %s.\n- Never switch languages, even if the candidate does.\n\n", langName)

	b.WriteString("Hard Rules:\n")
	b.WriteString("- Ask exactly one question per turn.\n")
	b.WriteString("- Keep each response to one short acknowledgment plus one new question.\n")
	b.WriteString("- Never restate the candidate's answer or solve the problem for them.\n")
	fmt.Fprintf(&b, "- Never end the interview before %d questions have been asked.\n", snap.MinQuestions)
	fmt.Fprintf(&b, "- Never use these phrases: %s.\n\n", strings.Join(OverPraisePhrases, ", "))

	if snap.Profile != (Profile{}) {
		b.WriteString("Candidate:\n")
		if snap.Profile.Role != "" {
			fmt.Fprintf(&b, "- Role: %s\n", snap.Profile.Role)
		}
		if snap.Profile.Seniority != "" {
			fmt.Fprintf(&b, "- Seniority: %s\n", snap.Profile.Seniority)
		}
		if snap.Profile.Industry != "" {
			fmt.Fprintf(&b, "- Industry: %s\n", snap.Profile.Industry)
		}
		if snap.Profile.YearsExperience > 0 {
			fmt.Fprintf(&b, "- Years of experience: %d\n", snap.Profile.YearsExperience)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Interview progress:\n- Stage: %s\n- Questions asked: %d (minimum %d, maximum %d)\n",
		snap.Stage, snap.QuestionCount, snap.MinQuestions, snap.MaxQuestions)
	if len(snap.CoveredTopics) > 0 {
		fmt.Fprintf(&b, "- Topics already covered: %s\n", strings.Join(snap.CoveredTopics, ", "))
	}
	remaining := snap.RemainingTopics
	if len(remaining) > maxPromptTopics {
		remaining = remaining[:maxPromptTopics]
	}
	if len(remaining) > 0 {
		fmt.Fprintf(&b, "- Topics to explore next: %s\n", strings.Join(remaining, ", "))
	}
	if len(snap.AskedQuestions) > 0 {
		b.WriteString("- Do not repeat these questions:\n")
		for _, q := range snap.AskedQuestions {
			fmt.Fprintf(&b, "  - %s\n", q)
		}
	}
	if snap.Stage == StageWrapUp {
		b.WriteString("\nThe interview is wrapping up: invite final remarks, then thank the candidate. Do not start new topics.\n")
	}
	return b.String()
}

// Greetings per interview type and language, spoken shortly after connect.
var Greetings = map[InterviewType]map[Language]string{
	Behavioral: {
		LangZhTW: "嗨！我是你的面試教練。這是一場行為面試，我會問關於你過去經驗的問題。請先簡單介紹一下你自己。",
		LangEN:   "Hi! I'm your interview coach. This is a behavioral interview where I'll ask about your past experiences. Please introduce yourself.",
	},
	Technical: {
		LangZhTW: "嗨！我是你的技術面試官。我會問一些程式設計和演算法的問題。請先告訴我你的程式設計經驗。",
		LangEN:   "Hi! I'm your technical interviewer. I'll ask some coding and algorithm questions. Tell me about your programming experience.",
	},
	SystemDesign: {
		LangZhTW: "嗨！我是你的系統設計面試官。我會討論大規模系統的架構問題。請分享你設計系統的經驗。",
		LangEN:   "Hi! I'm your system design interviewer. We'll discuss architecture for large-scale systems. Share your experience with system design.",
	},
	CaseStudy: {
		LangZhTW: "嗨！我是你的商業案例面試官。我會提出商業問題讓你分析。請告訴我你的分析經驗。",
		LangEN:   "Hi! I'm your case study interviewer. I'll present business problems for you to analyze. Tell me about your analytical experience.",
	},
}

// Greeting returns the greeting line for the type and language, falling back
// to the behavioral English greeting.
func Greeting(it InterviewType, lang Language) string {
	if m, ok := Greetings[it]; ok {
		if g, ok := m[lang]; ok {
			return g
		}
	}
	return Greetings[Behavioral][LangEN]
}

// MicTip nudges the user to check microphone permissions; always bilingual
// since at this point no language is locked yet.
const MicTip = "我還沒收到麥克風的聲音，請確認瀏覽器已授權麥克風權限。 I'm not receiving microphone audio. Please check that your browser has microphone permissions enabled."

// repairPrompts rotate so consecutive repairs don't sound canned.
var repairPrompts = map[Language][]string{
	LangEN: {
		"Sorry, I didn't catch that. Could you say it again?",
		"The audio broke up a little. Could you repeat your answer?",
		"I couldn't quite hear you. One more time, please?",
	},
	LangZhTW: {
		"不好意思，我沒聽清楚，可以再說一次嗎？",
		"剛剛聲音有點不清楚，麻煩你再重複一次。",
		"我沒有聽清楚你的回答，可以再講一次嗎？",
	},
}

// RepairPrompt returns the nth rotating "please repeat" line for the language.
func RepairPrompt(lang Language, n int) string {
	list := repairPrompts[lang]
	if len(list) == 0 {
		list = repairPrompts[LangEN]
	}
	if n < 0 {
		n = 0
	}
	return list[n%len(list)]
}

var silencePrompts = map[Language][]string{
	LangEN: {
		"Take your time. Whenever you're ready, go ahead.",
		"Are you still there? Feel free to continue when you're ready.",
		"No rush. If you'd like, I can move on to the next question.",
	},
	LangZhTW: {
		"慢慢來，準備好了再回答就可以。",
		"你還在線上嗎？準備好就請繼續。",
		"不用急，如果需要，我也可以先問下一題。",
	},
}

// SilencePrompt returns the nth rotating silence nudge for the language.
func SilencePrompt(lang Language, n int) string {
	list := silencePrompts[lang]
	if len(list) == 0 {
		list = silencePrompts[LangEN]
	}
	if n < 0 {
		n = 0
	}
	return list[n%len(list)]
}

var wrapUpLines = map[Language]string{
	LangEN:   "We're almost at the end of the interview. Is there anything you'd like to add or ask before we finish?",
	LangZhTW: "我們的面試差不多要結束了。在結束之前，你還有什麼想補充或想問的嗎？",
}

// WrapUpLine announces the wrap-up stage.
func WrapUpLine(lang Language) string {
	if l, ok := wrapUpLines[lang]; ok {
		return l
	}
	return wrapUpLines[LangEN]
}

var closingLines = map[Language]string{
	LangEN:   "That's all the time we have today. Thank you for practicing with me, and good luck with your interviews. Goodbye!",
	LangZhTW: "今天的練習時間到了。謝謝你的參與，祝你面試順利，再見！",
}

// ClosingLine is the final statement spoken on forced close.
func ClosingLine(lang Language) string {
	if l, ok := closingLines[lang]; ok {
		return l
	}
	return closingLines[LangEN]
}

// DetectLanguage picks the language variant from utterance content: any CJK
// ideograph selects zh-TW, otherwise English.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) {
			return LangZhTW
		}
	}
	return LangEN
}
