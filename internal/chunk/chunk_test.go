package chunk

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	s := New(500)

	if got := s.Split("", "Title"); got != nil {
		t.Errorf("Split(empty) = %v, want nil", got)
	}
	if got := s.Split("   \n\t  ", "Title"); got != nil {
		t.Errorf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplitSingleChunk(t *testing.T) {
	s := New(500)

	chunks := s.Split("Short content that fits.", "Ignored Title")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	c := chunks[0]
	if c.Text != "Short content that fits." {
		t.Errorf("Text = %q, want content without title", c.Text)
	}
	if c.Index != 0 || c.Total != 1 {
		t.Errorf("Index/Total = %d/%d, want 0/1", c.Index, c.Total)
	}
}

func TestSplitParagraphs(t *testing.T) {
	s := New(100)

	p1 := strings.Repeat("a", 40)
	p2 := strings.Repeat("b", 40)
	p3 := strings.Repeat("c", 40)
	content := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks := s.Split(content, "")
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}

	// First two paragraphs pack together (40+40+2 <= 100), third spills.
	if want := p1 + "\n\n" + p2; chunks[0].Text != want {
		t.Errorf("chunk 0 = %q, want %q", chunks[0].Text, want)
	}
	if chunks[1].Text != p3 {
		t.Errorf("chunk 1 = %q, want %q", chunks[1].Text, p3)
	}
	for i, c := range chunks {
		if c.Index != i || c.Total != 2 {
			t.Errorf("chunk %d Index/Total = %d/%d, want %d/2", i, c.Index, c.Total, i)
		}
	}
}

func TestSplitTitlePrefix(t *testing.T) {
	s := New(100)

	content := strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 80)
	chunks := s.Split(content, "Curl Patterns")
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if !strings.HasPrefix(chunks[0].Text, "Curl Patterns\n\n") {
		t.Errorf("chunk 0 missing title prefix: %q", chunks[0].Text)
	}
	if strings.Contains(chunks[1].Text, "Curl Patterns") {
		t.Errorf("chunk 1 should not carry the title: %q", chunks[1].Text)
	}
}

func TestSplitOversizeParagraphBySentences(t *testing.T) {
	s := New(60)

	sent := func(ch string) string { return strings.Repeat(ch, 24) + "." }
	para := sent("a") + " " + sent("b") + " " + sent("c")

	chunks := s.Split(para+"\n\npadding paragraph to force the multi-chunk path here", "")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}

	// Sentences a and b pack (25+1+25 <= 60), c starts the next chunk.
	if want := sent("a") + " " + sent("b"); chunks[0].Text != want {
		t.Errorf("chunk 0 = %q, want %q", chunks[0].Text, want)
	}
	if !strings.HasPrefix(chunks[1].Text, sent("c")) {
		t.Errorf("chunk 1 = %q, want prefix %q", chunks[1].Text, sent("c"))
	}
}

func TestSplitSentenceLongerThanSize(t *testing.T) {
	s := New(50)

	long := strings.Repeat("x", 120) // no sentence boundary at all
	chunks := s.Split(long, "")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != long {
		t.Errorf("unbreakable text was altered: %q", chunks[0].Text)
	}
}

func TestSplitNoDataLoss(t *testing.T) {
	s := New(80)

	paras := []string{
		"First paragraph with a sentence. And another one here.",
		"Second paragraph follows after a blank line.",
		"Third paragraph is the last of the three in this body.",
	}
	content := strings.Join(paras, "\n\n")

	chunks := s.Split(content, "")
	joined := ""
	for _, c := range chunks {
		joined += c.Text + " "
	}
	for _, p := range paras {
		for _, word := range strings.Fields(p) {
			if !strings.Contains(joined, word) {
				t.Errorf("word %q lost during chunking", word)
			}
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One sentence. Two! Three? Last without terminator")
	want := []string{"One sentence.", "Two!", "Three?", "Last without terminator"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesNoFalsePositives(t *testing.T) {
	// Periods not followed by whitespace are not boundaries.
	got := splitSentences("version 1.2.3 shipped")
	if len(got) != 1 || got[0] != "version 1.2.3 shipped" {
		t.Errorf("got %v, want single sentence", got)
	}
}

func TestNewDefaultSize(t *testing.T) {
	if got := New(0).Size(); got != DefaultSize {
		t.Errorf("Size() = %d, want %d", got, DefaultSize)
	}
	if got := New(-5).Size(); got != DefaultSize {
		t.Errorf("Size() = %d, want %d", got, DefaultSize)
	}
}
