package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Config holds model invocation configuration.
type Config struct {
	Region          string
	Endpoint        string // optional, for local emulators
	AccessKeyID     string // optional, default credential chain otherwise
	SecretAccessKey string
	PrimaryModel    string // e.g. "anthropic.claude-3-5-sonnet-20240620-v1:0"
	FallbackModel   string // e.g. "amazon.titan-text-express-v1"; empty disables fallback
	MaxTokens       int
	Temperature     float64
	TopP            float64
	Policy          FallbackPolicy
}

// Runtime is the subset of the Bedrock runtime API the client calls.
type Runtime interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Recorder observes model invocations.
type Recorder interface {
	ModelInvoked(model, outcome string)
	ModelFallback(from, to string)
}

// Client invokes a primary model and falls back to a secondary model when
// the primary is unavailable to the account.
type Client struct {
	runtime  Runtime
	primary  string
	fallback string
	params   Params
	policy   FallbackPolicy
	recorder Recorder
}

// New creates a client backed by the Bedrock runtime.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.PrimaryModel == "" {
		return nil, fmt.Errorf("primary model is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var rtOpts []func(*bedrockruntime.Options)
	if config.Endpoint != "" {
		rtOpts = append(rtOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}

	return NewWithRuntime(bedrockruntime.NewFromConfig(awsCfg, rtOpts...), config)
}

// NewWithRuntime creates a client over an existing runtime.
func NewWithRuntime(rt Runtime, config Config) (*Client, error) {
	if rt == nil {
		return nil, fmt.Errorf("runtime is required")
	}
	if config.PrimaryModel == "" {
		return nil, fmt.Errorf("primary model is required")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 600
	}
	if config.Policy.Codes == nil && config.Policy.Markers == nil {
		config.Policy = DefaultFallbackPolicy()
	}

	return &Client{
		runtime:  rt,
		primary:  config.PrimaryModel,
		fallback: config.FallbackModel,
		params: Params{
			MaxTokens:   config.MaxTokens,
			Temperature: config.Temperature,
			TopP:        config.TopP,
		},
		policy: config.Policy,
	}, nil
}

// WithRecorder attaches an invocation observer.
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// Generate sends prompt to the primary model. When that fails with a
// fallback-eligible error and a fallback model is configured, the same
// prompt is sent once to the fallback model. Any other failure is returned
// as is. The result is trimmed; an empty string is a valid answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.Invoke(ctx, c.primary, prompt)
	if err == nil {
		return text, nil
	}

	if c.fallback == "" || !c.policy.Eligible(err) {
		return "", err
	}

	slog.Warn("primary model unavailable, falling back",
		"primary", c.primary,
		"fallback", c.fallback,
		"error", err)
	if c.recorder != nil {
		c.recorder.ModelFallback(c.primary, c.fallback)
	}

	return c.Invoke(ctx, c.fallback, prompt)
}

// Invoke sends prompt to one model using that model's envelope.
func (c *Client) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	env := envelopeFor(modelID)

	body, err := env.encode(prompt, c.params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	slog.Debug("invoking model", "model", modelID, "shape", ShapeFor(modelID), "prompt_len", len(prompt))

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		c.observe(modelID, "error")
		return "", fmt.Errorf("invoke model %s: %w", modelID, err)
	}

	text, err := env.decode(out.Body)
	if err != nil {
		c.observe(modelID, "error")
		return "", err
	}

	c.observe(modelID, "ok")
	return text, nil
}

// Primary returns the primary model id.
func (c *Client) Primary() string {
	return c.primary
}

func (c *Client) observe(model, outcome string) {
	if c.recorder != nil {
		c.recorder.ModelInvoked(model, outcome)
	}
}
