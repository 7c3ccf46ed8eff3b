package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockInvoker is the slice of the Bedrock runtime client the generator
// needs. *bedrockruntime.Client satisfies it.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock generates text completions through the Bedrock runtime. It is safe
// for concurrent use.
type Bedrock struct {
	client BedrockInvoker
}

// NewBedrock constructs a Bedrock generator over the given runtime client.
func NewBedrock(client BedrockInvoker) (*Bedrock, error) {
	if client == nil {
		return nil, errors.New("generation: nil bedrock client")
	}
	return &Bedrock{client: client}, nil
}

// Claude models predate the messages API here and take a completion-style
// prompt with mandatory Human/Assistant markers.
type claudeRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	TopK              int      `json:"top_k"`
	TopP              float64  `json:"top_p"`
	StopSequences     []string `json:"stop_sequences"`
}

type claudeResponse struct {
	Completion string `json:"completion"`
}

type titanTextRequest struct {
	InputText            string          `json:"inputText"`
	TextGenerationConfig titanTextConfig `json:"textGenerationConfig"`
}

type titanTextConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type titanTextResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

type mistralRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop"`
}

type mistralResponse struct {
	Outputs []struct {
		Text string `json:"text"`
	} `json:"outputs"`
}

type cohereRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokens         int      `json:"max_tokens"`
	Temperature       float64  `json:"temperature"`
	P                 float64  `json:"p"`
	StopSequences     []string `json:"stop_sequences"`
	ReturnLikelihoods string   `json:"return_likelihoods"`
}

type cohereResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

// Generate invokes the model identified by modelID with the given prompt and
// returns the completion text, trimmed of surrounding whitespace. The family
// must already be resolved via FamilyForModelID; an out-of-table family
// yields *UnsupportedModelError without a transport call.
func (b *Bedrock) Generate(ctx context.Context, prompt, modelID string, family ModelFamily, opts Options) (string, error) {
	opts = opts.withDefaults()

	var body []byte
	var err error
	switch family {
	case FamilyClaude:
		stops := opts.StopSequences
		if len(stops) == 0 {
			stops = []string{"\n\nHuman:"}
		}
		body, err = json.Marshal(claudeRequest{
			Prompt:            fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			MaxTokensToSample: opts.MaxTokens,
			Temperature:       opts.Temperature,
			TopK:              250,
			TopP:              opts.TopP,
			StopSequences:     stops,
		})
	case FamilyTitanText:
		body, err = json.Marshal(titanTextRequest{
			InputText: prompt,
			TextGenerationConfig: titanTextConfig{
				MaxTokenCount: opts.MaxTokens,
				Temperature:   opts.Temperature,
				TopP:          opts.TopP,
			},
		})
	case FamilyMistral:
		stops := opts.StopSequences
		if stops == nil {
			stops = []string{}
		}
		body, err = json.Marshal(mistralRequest{
			Prompt:      prompt,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			Stop:        stops,
		})
	case FamilyCohereCommand:
		stops := opts.StopSequences
		if stops == nil {
			stops = []string{}
		}
		body, err = json.Marshal(cohereRequest{
			Prompt:            prompt,
			MaxTokens:         opts.MaxTokens,
			Temperature:       opts.Temperature,
			P:                 opts.TopP,
			StopSequences:     stops,
			ReturnLikelihoods: "NONE",
		})
	default:
		return "", &UnsupportedModelError{ModelID: modelID}
	}
	if err != nil {
		return "", &GenerationError{ModelID: modelID, Err: err}
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", &GenerationError{ModelID: modelID, Err: err}
	}

	text, err := parseCompletion(family, out.Body)
	if err != nil {
		return "", &GenerationError{ModelID: modelID, Err: err}
	}
	return strings.TrimSpace(text), nil
}

// parseCompletion extracts the completion text from a family-specific
// response body.
func parseCompletion(family ModelFamily, body []byte) (string, error) {
	switch family {
	case FamilyClaude:
		var resp claudeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		if resp.Completion == "" {
			return "", errors.New("response carried no completion")
		}
		return resp.Completion, nil
	case FamilyTitanText:
		var resp titanTextResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		if len(resp.Results) == 0 || resp.Results[0].OutputText == "" {
			return "", errors.New("response carried no results")
		}
		return resp.Results[0].OutputText, nil
	case FamilyMistral:
		var resp mistralResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		if len(resp.Outputs) == 0 || resp.Outputs[0].Text == "" {
			return "", errors.New("response carried no outputs")
		}
		return resp.Outputs[0].Text, nil
	case FamilyCohereCommand:
		var resp cohereResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		if len(resp.Generations) == 0 || resp.Generations[0].Text == "" {
			return "", errors.New("response carried no generations")
		}
		return resp.Generations[0].Text, nil
	default:
		return "", fmt.Errorf("no parser for family %s", family)
	}
}
