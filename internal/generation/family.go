// Package generation invokes Bedrock text-generation models. Each supported
// model family has its own request and response wire shape; dispatch is a
// closed switch over ModelFamily so an unrecognized model ID fails before
// any transport call rather than producing a malformed request.
package generation

import (
	"fmt"
	"strings"
)

// ModelFamily identifies a supported Bedrock text-generation model family.
type ModelFamily int

const (
	// FamilyClaude covers anthropic.claude-* models.
	FamilyClaude ModelFamily = iota
	// FamilyTitanText covers amazon.titan-text-* models.
	FamilyTitanText
	// FamilyMistral covers mistral.* models.
	FamilyMistral
	// FamilyCohereCommand covers cohere.command-* models.
	FamilyCohereCommand
)

// String returns the family name for logs and error messages.
func (f ModelFamily) String() string {
	switch f {
	case FamilyClaude:
		return "claude"
	case FamilyTitanText:
		return "titan-text"
	case FamilyMistral:
		return "mistral"
	case FamilyCohereCommand:
		return "cohere-command"
	default:
		return fmt.Sprintf("ModelFamily(%d)", int(f))
	}
}

// familyPrefixes maps model ID prefixes to their families. The table is
// closed: a model ID matching none of these is unsupported.
var familyPrefixes = []struct {
	prefix string
	family ModelFamily
}{
	{"anthropic.claude", FamilyClaude},
	{"amazon.titan-text", FamilyTitanText},
	{"mistral.", FamilyMistral},
	{"cohere.command", FamilyCohereCommand},
}

// FamilyForModelID resolves a Bedrock model ID to its family. It returns
// *UnsupportedModelError when the ID matches no known family, which callers
// should check before doing any retrieval or transport work.
func FamilyForModelID(modelID string) (ModelFamily, error) {
	for _, p := range familyPrefixes {
		if strings.HasPrefix(modelID, p.prefix) {
			return p.family, nil
		}
	}
	return 0, &UnsupportedModelError{ModelID: modelID}
}

// UnsupportedModelError reports a model ID outside the closed family table.
type UnsupportedModelError struct {
	// ModelID is the rejected Bedrock model identifier.
	ModelID string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("generation: unsupported model %q", e.ModelID)
}

// GenerationError reports a failed generation call against a known family:
// transport failure, malformed response, or an empty completion.
type GenerationError struct {
	// ModelID is the Bedrock model that was invoked.
	ModelID string
	// Err is the underlying cause.
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation: %s: %v", e.ModelID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Options tune a generation call. Zero values select the defaults.
type Options struct {
	// MaxTokens caps the completion length (default: 512).
	MaxTokens int
	// Temperature controls sampling randomness (default: 0.7).
	Temperature float64
	// TopP is the nucleus sampling cutoff (default: 0.9).
	TopP float64
	// StopSequences end generation early when emitted by the model.
	// Families that require stop sequences get their own defaults.
	StopSequences []string
}

const (
	defaultMaxTokens   = 512
	defaultTemperature = 0.7
	defaultTopP        = 0.9
)

// withDefaults fills zero-valued fields with the package defaults.
func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.TopP == 0 {
		o.TopP = defaultTopP
	}
	return o
}
