package topic

import "testing"

func TestDetect_RegistrationOrderWins(t *testing.T) {
	tr := NewTracker([]Topic{
		{Tag: "first", Keywords: []string{"shared"}},
		{Tag: "second", Keywords: []string{"shared", "other"}},
	})
	tag, ok := tr.Detect("something SHARED here")
	if !ok || tag != "first" {
		t.Fatalf("expected first registered topic, got %q ok=%v", tag, ok)
	}
}

func TestDetect_Bilingual(t *testing.T) {
	tr := NewTracker(nil)
	if tag, ok := tr.Detect("I had to lead a small team"); !ok || tag != "leadership" {
		t.Fatalf("expected leadership, got %q ok=%v", tag, ok)
	}
	if tag, ok := tr.Detect("我負責帶領三個工程師"); !ok || tag != "leadership" {
		t.Fatalf("expected leadership for Chinese text, got %q ok=%v", tag, ok)
	}
	if _, ok := tr.Detect("the weather is nice"); ok {
		t.Fatalf("expected no topic match")
	}
}

func TestMarkCovered_RemovesFromPoolForever(t *testing.T) {
	tr := NewTracker(nil)
	total := len(tr.Remaining())
	tr.MarkCovered("teamwork")
	tr.MarkCovered("teamwork") // idempotent
	tr.MarkCovered("no-such-topic")
	if got := len(tr.Remaining()); got != total-1 {
		t.Fatalf("expected pool to shrink by one, got %d of %d", got, total)
	}
	for _, tag := range tr.Remaining() {
		if tag == "teamwork" {
			t.Fatalf("covered topic reappeared in remaining pool")
		}
	}
	if got := tr.Covered(); len(got) != 1 || got[0] != "teamwork" {
		t.Fatalf("unexpected covered set: %v", got)
	}
}
