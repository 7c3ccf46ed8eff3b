// Package chunker splits raw document text into bounded, overlapping passages
// suitable for embedding. Two splitting policies are supported: fixed word
// windows with overlap, and greedy sentence accumulation up to a word budget.
// Splitting is a pure function: the same input always yields the same chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy selects how a document is divided into chunks.
type Policy int

const (
	// PolicyWindow splits on fixed-size word windows with a stride of
	// MaxWords-Overlap, so consecutive chunks share Overlap words.
	PolicyWindow Policy = iota

	// PolicySentence accumulates whole sentences until adding the next one
	// would exceed MaxWords, then flushes. A single sentence longer than
	// MaxWords becomes its own chunk.
	PolicySentence
)

// String returns the policy name used in CLI flags and config files.
func (p Policy) String() string {
	switch p {
	case PolicyWindow:
		return "window"
	case PolicySentence:
		return "sentence"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name ("window" or "sentence") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "window":
		return PolicyWindow, nil
	case "sentence":
		return PolicySentence, nil
	default:
		return 0, &ConfigError{Reason: fmt.Sprintf("unknown chunking policy %q (valid values: window, sentence)", s)}
	}
}

// ConfigError reports invalid chunking parameters. It is returned before any
// splitting work begins.
type ConfigError struct {
	// Reason describes which parameter is invalid and why.
	Reason string
}

func (e *ConfigError) Error() string {
	return "chunker: " + e.Reason
}

// Config holds the chunking parameters. There is no default policy, so
// callers must choose one explicitly.
type Config struct {
	// Policy selects the splitting strategy.
	Policy Policy

	// MaxWords is the word budget per chunk. Must be positive.
	MaxWords int

	// Overlap is the number of words shared between consecutive chunks.
	// Only meaningful for PolicyWindow. Must be less than MaxWords.
	Overlap int
}

// validate rejects impossible parameter combinations.
func (c Config) validate() error {
	if c.MaxWords <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("max words must be positive, got %d", c.MaxWords)}
	}
	if c.Overlap < 0 {
		return &ConfigError{Reason: fmt.Sprintf("overlap must not be negative, got %d", c.Overlap)}
	}
	if c.Overlap >= c.MaxWords {
		return &ConfigError{Reason: fmt.Sprintf("overlap (%d) must be less than max words (%d)", c.Overlap, c.MaxWords)}
	}
	if c.Policy != PolicyWindow && c.Policy != PolicySentence {
		return &ConfigError{Reason: fmt.Sprintf("unknown policy %d", int(c.Policy))}
	}
	return nil
}

// Chunk is a contiguous word-range slice of a document.
type Chunk struct {
	// Text is the chunk content, words joined by single spaces.
	Text string

	// Ordinal is the zero-based position of this chunk within its document.
	Ordinal int
}

// Split divides text into chunks according to cfg. The result is
// deterministic: splitting the same text with the same config always yields
// the same chunks. Empty or whitespace-only text yields no chunks.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch cfg.Policy {
	case PolicySentence:
		return splitSentenceWise(text, cfg.MaxWords), nil
	default:
		return splitWindowed(text, cfg.MaxWords, cfg.Overlap), nil
	}
}

// splitWindowed emits word windows of up to maxWords words, advancing by
// maxWords-overlap each step so consecutive windows share overlap words.
// The final window may be shorter than maxWords.
func splitWindowed(text string, maxWords, overlap int) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := maxWords - overlap
	var chunks []Chunk
	for start := 0; start < len(words); start += stride {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Text:    strings.Join(words[start:end], " "),
			Ordinal: len(chunks),
		})
	}
	return chunks
}

// sentenceBoundary marks the gap after terminal punctuation. Splitting on the
// match keeps the punctuation with the preceding sentence.
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// splitSentences divides text into sentences at terminal punctuation followed
// by whitespace. Trailing text without terminal punctuation forms the last
// sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation character; include it in the sentence.
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// splitSentenceWise greedily accumulates whole sentences until adding the
// next would exceed maxWords, then flushes the accumulated chunk.
func splitSentenceWise(text string, maxWords int) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	count := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:    strings.Join(current, " "),
			Ordinal: len(chunks),
		})
		current = nil
		count = 0
	}

	for _, s := range sentences {
		w := len(strings.Fields(s))
		if count+w > maxWords && count > 0 {
			flush()
		}
		current = append(current, s)
		count += w
	}
	flush()

	return chunks
}
