package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/extropic-systems/ragcore/internal/generation"
	"github.com/extropic-systems/ragcore/internal/logging"
	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/rag"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// ask for a specific count.
const DefaultTopK = 5

// DefaultModelID is the generation model used when none is configured.
const DefaultModelID = "anthropic.claude-v2"

// Generator produces a completion for an assembled prompt. The family must
// match the model ID; generation.Bedrock satisfies this interface.
type Generator interface {
	Generate(ctx context.Context, prompt, modelID string, family generation.ModelFamily, opts generation.Options) (string, error)
}

// Question is one answer request.
type Question struct {
	// Text is the user's question.
	Text string
	// TopK is how many chunks to retrieve (default: DefaultTopK).
	TopK int
	// ModelID selects the generation model (default: DefaultModelID).
	ModelID string
	// RAG controls retrieval. When false the question goes to the model
	// verbatim with no context.
	RAG bool
	// Options tune the generation call.
	Options generation.Options
}

// Answer is the result of one answer request.
type Answer struct {
	// Text is the model's completion.
	Text string
	// Context is the retrieved chunks the prompt was assembled from, in
	// ranked order. Empty when retrieval was disabled.
	Context []rag.ScoredRecord
	// ModelID is the model that produced the completion.
	ModelID string
	// Elapsed is the wall-clock duration of the whole request.
	Elapsed time.Duration
}

// Answerer runs the query pipeline: resolve the model family, retrieve
// context, assemble the prompt, generate.
type Answerer struct {
	retriever rag.Retriever
	generator Generator
}

// NewAnswerer constructs an Answerer. The retriever may be nil only if every
// question disables retrieval.
func NewAnswerer(retriever rag.Retriever, generator Generator) (*Answerer, error) {
	if generator == nil {
		return nil, errors.New("pipeline: answerer requires a generator")
	}
	return &Answerer{retriever: retriever, generator: generator}, nil
}

// Ask answers one question. The model family is resolved first so an
// unsupported model ID fails before any retrieval or generation work.
// Retrieval and generation errors propagate unchanged.
func (a *Answerer) Ask(ctx context.Context, q Question) (Answer, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	modelID := q.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}
	family, err := generation.FamilyForModelID(modelID)
	if err != nil {
		return Answer{}, err
	}

	topK := q.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	var scored []rag.ScoredRecord
	if q.RAG {
		if a.retriever == nil {
			return Answer{}, errors.New("pipeline: retrieval requested but no retriever configured")
		}
		scored, err = a.retriever.Retrieve(ctx, q.Text, topK)
		if err != nil {
			return Answer{}, fmt.Errorf("pipeline: retrieve: %w", err)
		}
		log.Debug("retrieved context", "chunks", len(scored), "top_k", topK)
	}

	records := make([]metastore.Record, len(scored))
	for i, s := range scored {
		records[i] = s.Record
	}
	prompt := rag.AssemblePrompt(q.Text, records, q.RAG)

	text, err := a.generator.Generate(ctx, prompt, modelID, family, q.Options)
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Text:    text,
		Context: scored,
		ModelID: modelID,
		Elapsed: time.Since(start),
	}, nil
}
