// ABOUTME: Gemini client: go-openai for the chat session, genai for generate-content
// ABOUTME: Every call is a single attempt; call sites own retry
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/harper/marcusbot/internal/retry"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible API root
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultGenerateBaseURL is the native Gemini API root used by genai
	DefaultGenerateBaseURL = "https://generativelanguage.googleapis.com/"
	// DefaultChatModel keeps the conversational history
	DefaultChatModel = "gemini-2.0-flash"
	// DefaultImageModel answers generate-content calls with text and image parts
	DefaultImageModel = "gemini-2.0-flash-exp-image-generation"

	// MinTemperature and MaxTemperature bound GenerateConfig.Temperature
	MinTemperature = 0.1
	MaxTemperature = 2.0
)

// Modality is a requested response part type
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
)

// GenerateConfig configures a stateless generate-content call
type GenerateConfig struct {
	Modalities  []Modality
	Temperature float32
}

// Validate checks the temperature range and that at least one modality is set
func (g GenerateConfig) Validate() error {
	if g.Temperature < MinTemperature || g.Temperature > MaxTemperature {
		return fmt.Errorf("temperature must be %.1f-%.1f, got %.2f", MinTemperature, MaxTemperature, g.Temperature)
	}
	if len(g.Modalities) == 0 {
		return errors.New("at least one response modality is required")
	}
	return nil
}

// ClientConfig holds configuration for the Gemini client
type ClientConfig struct {
	APIKey          string
	BaseURL         string
	GenerateBaseURL string
	ChatModel       string
	ImageModel      string
	Timeout         time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:          apiKey,
		BaseURL:         DefaultBaseURL,
		GenerateBaseURL: DefaultGenerateBaseURL,
		ChatModel:       DefaultChatModel,
		ImageModel:      DefaultImageModel,
		Timeout:         30 * time.Second,
	}
}

// GeminiClient wraps the go-openai client for chat and the genai client
// for generate-content
type GeminiClient struct {
	client     *openai.Client
	genai      *genai.Client
	chatModel  string
	imageModel string
}

// NewGeminiClient creates a client with custom configuration
func NewGeminiClient(ctx context.Context, config *ClientConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	oc.HTTPClient = httpClient

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.GenerateBaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	imageModel := config.ImageModel
	if imageModel == "" {
		imageModel = DefaultImageModel
	}

	return &GeminiClient{
		client:     openai.NewClientWithConfig(oc),
		genai:      gc,
		chatModel:  chatModel,
		imageModel: imageModel,
	}, nil
}

// NewChat starts an empty chat session on the chat model
func (c *GeminiClient) NewChat() *ChatSession {
	return newChatSession(c, c.chatModel)
}

func (c *GeminiClient) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage, temperature float32) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", classifyError(ctx, fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", retry.NewPermanent(errors.New("no completion choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyError tags go-openai errors for the retry layer
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return retry.FromStatus(apiErr.HTTPStatusCode, 0, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return retry.FromStatus(reqErr.HTTPStatusCode, 0, err)
	}
	if retry.ClassOf(err) == retry.Transient {
		return retry.NewTransient(err)
	}
	return retry.NewPermanent(err)
}
