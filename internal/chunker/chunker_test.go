package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// wordsOf builds a space-joined sequence "w0 w1 ... wN-1".
func wordsOf(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "w%d", i)
	}
	return b.String()
}

func Test_Split_RejectsOverlapNotBelowMaxWords(t *testing.T) {
	t.Parallel()

	for _, overlap := range []int{200, 250} {
		_, err := Split("some text", Config{Policy: PolicyWindow, MaxWords: 200, Overlap: overlap})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("overlap=%d: want ConfigError, got %v", overlap, err)
		}
	}
}

func Test_Split_RejectsNonPositiveMaxWords(t *testing.T) {
	t.Parallel()

	_, err := Split("some text", Config{Policy: PolicyWindow, MaxWords: 0})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
}

func Test_Split_WindowedOverlapInvariant(t *testing.T) {
	t.Parallel()

	text := wordsOf(500)
	chunks, err := Split(text, Config{Policy: PolicyWindow, MaxWords: 200, Overlap: 50})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		cur := strings.Fields(chunks[i].Text)
		if len(prev) < 200 {
			// Only full windows carry the complete 50-word overlap forward.
			continue
		}
		tail := prev[len(prev)-50:]
		head := cur
		if len(head) > 50 {
			head = head[:50]
		}
		if strings.Join(tail, " ") != strings.Join(head, " ") {
			t.Errorf("chunk %d: boundary words do not overlap by 50", i)
		}
	}
}

func Test_Split_WindowedCoversEveryWord(t *testing.T) {
	t.Parallel()

	text := wordsOf(333)
	chunks, err := Split(text, Config{Policy: PolicyWindow, MaxWords: 100, Overlap: 20})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range chunks {
		for _, w := range strings.Fields(c.Text) {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(text) {
		if !seen[w] {
			t.Fatalf("word %q missing from all chunks", w)
		}
	}
}

func Test_Split_WindowedDeterministic(t *testing.T) {
	t.Parallel()

	text := wordsOf(450)
	cfg := Config{Policy: PolicyWindow, MaxWords: 200, Overlap: 50}

	a, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("first split: %v", err)
	}
	b, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("second split: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func Test_Split_WindowedOrdinalsAreDense(t *testing.T) {
	t.Parallel()

	chunks, err := Split(wordsOf(50), Config{Policy: PolicyWindow, MaxWords: 10, Overlap: 2})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for i, c := range chunks {
		if c.Ordinal != i {
			t.Errorf("chunk %d has ordinal %d", i, c.Ordinal)
		}
	}
}

func Test_Split_SentencePolicyKeepsSentencesWhole(t *testing.T) {
	t.Parallel()

	text := "The first fact is short. The second fact is also short! Is the third a question? The fourth closes it."
	chunks, err := Split(text, Config{Policy: PolicySentence, MaxWords: 12})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("want at least 2 chunks, got %d", len(chunks))
	}

	// No chunk may split a sentence: every chunk ends with terminal punctuation.
	for i, c := range chunks {
		last := c.Text[len(c.Text)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c.Text)
		}
	}
}

func Test_Split_SentencePolicyRespectsWordBudget(t *testing.T) {
	t.Parallel()

	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, "one two three four five.")
	}
	text := strings.Join(sentences, " ")

	chunks, err := Split(text, Config{Policy: PolicySentence, MaxWords: 12})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for i, c := range chunks {
		if n := len(strings.Fields(c.Text)); n > 12 {
			t.Errorf("chunk %d has %d words, budget is 12", i, n)
		}
	}
}

func Test_Split_SentencePolicyOversizedSentenceStandsAlone(t *testing.T) {
	t.Parallel()

	long := wordsOf(30) + "."
	text := "Short one. " + long + " Short two."

	chunks, err := Split(text, Config{Policy: PolicySentence, MaxWords: 10})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, "w29") {
			found = true
			if strings.Contains(c.Text, "Short") {
				t.Errorf("oversized sentence shares a chunk with another sentence: %q", c.Text)
			}
		}
	}
	if !found {
		t.Fatal("oversized sentence missing from output")
	}
}

func Test_Split_EmptyTextYieldsNoChunks(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{PolicyWindow, PolicySentence} {
		chunks, err := Split("   \n\t ", Config{Policy: policy, MaxWords: 100, Overlap: 10})
		if err != nil {
			t.Fatalf("%s: split: %v", policy, err)
		}
		if len(chunks) != 0 {
			t.Errorf("%s: want no chunks, got %d", policy, len(chunks))
		}
	}
}

func Test_ParsePolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"window", PolicyWindow, false},
		{"sentence", PolicySentence, false},
		{"Sentence", PolicySentence, false},
		{" window ", PolicyWindow, false},
		{"hnsw", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParsePolicy(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePolicy(%q): want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePolicy(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
