package topic

import (
	"strings"
	"sync"
)

// Topic is one competency tag with its bilingual detection keywords.
// Keywords must be lowercase; matching is substring membership.
type Topic struct {
	Tag      string
	Keywords []string
}

// DefaultTopics returns the behavioral competency universe in registration
// order. Detection ties are broken by this order, not content relevance.
func DefaultTopics() []Topic {
	return []Topic{
		{Tag: "leadership", Keywords: []string{"lead", "leader", "leadership", "mentor", "帶領", "領導", "帶人"}},
		{Tag: "teamwork", Keywords: []string{"team", "collaborat", "coworker", "colleague", "團隊", "合作", "同事"}},
		{Tag: "conflict", Keywords: []string{"conflict", "disagree", "argument", "difficult person", "衝突", "意見不合", "爭執"}},
		{Tag: "failure", Keywords: []string{"fail", "mistake", "wrong", "setback", "失敗", "錯誤", "挫折"}},
		{Tag: "deadline", Keywords: []string{"deadline", "pressure", "urgent", "time constraint", "期限", "壓力", "緊急"}},
		{Tag: "communication", Keywords: []string{"communicat", "present", "explain", "stakeholder", "溝通", "簡報", "說明"}},
		{Tag: "problem-solving", Keywords: []string{"solve", "solution", "debug", "analyz", "解決", "分析", "排查"}},
	}
}

// Tracker maps utterance content to covered topics and owns the remaining pool.
type Tracker struct {
	mu      sync.Mutex
	topics  []Topic
	covered map[string]bool
}

func NewTracker(topics []Topic) *Tracker {
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	return &Tracker{topics: topics, covered: make(map[string]bool)}
}

// Detect returns the first registered topic whose keyword set matches the
// text, or ok=false when nothing matches.
func (t *Tracker) Detect(text string) (string, bool) {
	lower := strings.ToLower(text)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tp := range t.topics {
		for _, kw := range tp.Keywords {
			if strings.Contains(lower, kw) {
				return tp.Tag, true
			}
		}
	}
	return "", false
}

// MarkCovered removes a topic from the remaining pool. Marking an
// already-covered or unknown tag is a no-op.
func (t *Tracker) MarkCovered(tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tp := range t.topics {
		if tp.Tag == tag {
			t.covered[tag] = true
			return
		}
	}
}

// Covered returns covered tags in registration order.
func (t *Tracker) Covered() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, tp := range t.topics {
		if t.covered[tp.Tag] {
			out = append(out, tp.Tag)
		}
	}
	return out
}

// Remaining returns the configured universe minus covered tags, in
// registration order.
func (t *Tracker) Remaining() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, tp := range t.topics {
		if !t.covered[tp.Tag] {
			out = append(out, tp.Tag)
		}
	}
	return out
}
