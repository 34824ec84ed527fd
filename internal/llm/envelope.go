package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Shape identifies the request/response envelope a model speaks.
type Shape int

const (
	// Completion is the single-field inputText envelope.
	Completion Shape = iota
	// Messages is the chat-style envelope with role/content parts.
	Messages
)

func (s Shape) String() string {
	if s == Messages {
		return "messages"
	}
	return "completion"
}

// ShapeFor selects the envelope from the model identifier's naming
// convention, including cross-region inference profiles like
// "us.anthropic.claude-...".
func ShapeFor(modelID string) Shape {
	if strings.HasPrefix(modelID, "anthropic.") || strings.Contains(modelID, ".anthropic.") {
		return Messages
	}
	return Completion
}

// Params are the generation settings shared by both envelopes.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

const anthropicVersion = "bedrock-2023-05-31"

type envelope interface {
	encode(prompt string, p Params) ([]byte, error)
	decode(body []byte) (string, error)
}

func envelopeFor(modelID string) envelope {
	if ShapeFor(modelID) == Messages {
		return messagesEnvelope{}
	}
	return completionEnvelope{}
}

type messagesEnvelope struct{}

type messagesRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	Messages         []messageRequest `json:"messages"`
}

type messageRequest struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	Content []contentPart `json:"content"`
}

func (messagesEnvelope) encode(prompt string, p Params) ([]byte, error) {
	return json.Marshal(messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		Messages: []messageRequest{
			{Role: "user", Content: []contentPart{{Type: "text", Text: prompt}}},
		},
	})
}

func (messagesEnvelope) decode(body []byte) (string, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal messages response: %w", err)
	}

	var sb strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

type completionEnvelope struct{}

type completionRequest struct {
	InputText            string           `json:"inputText"`
	TextGenerationConfig generationConfig `json:"textGenerationConfig"`
}

type generationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type completionResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

func (completionEnvelope) encode(prompt string, p Params) ([]byte, error) {
	return json.Marshal(completionRequest{
		InputText: prompt,
		TextGenerationConfig: generationConfig{
			MaxTokenCount: p.MaxTokens,
			Temperature:   p.Temperature,
			TopP:          p.TopP,
		},
	})
}

func (completionEnvelope) decode(body []byte) (string, error) {
	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal completion response: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Results[0].OutputText), nil
}
