package rag

import (
	"fmt"
	"strings"

	"github.com/extropic-systems/ragcore/internal/metastore"
)

// Prompt template fragments. The rendered prompt is deterministic: chunks in
// retrieval order, numbered, joined by blank lines, followed by the question
// and an answer cue.
const (
	promptPreamble    = "You are a helpful assistant. Use the following context to answer the question.\n\nContext:\n"
	promptQuestionFmt = "\n\nQuestion: %s\n\nAnswer:"
	chunkSeparator    = "\n\n"
)

// AssemblePrompt renders the prompt sent to the generative model. When
// ragEnabled is false the question is returned verbatim, with no template
// and no context. When true, each chunk is numbered in retrieval order and the
// question plus an "Answer:" cue follow the context block.
func AssemblePrompt(question string, records []metastore.Record, ragEnabled bool) string {
	if !ragEnabled {
		return question
	}

	numbered := make([]string, 0, len(records))
	for i, rec := range records {
		numbered = append(numbered, fmt.Sprintf("[%d] %s", i+1, rec.Chunk))
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString(strings.Join(numbered, chunkSeparator))
	fmt.Fprintf(&b, promptQuestionFmt, question)
	return b.String()
}
