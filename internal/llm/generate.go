// ABOUTME: Stateless generate-content calls on the native Gemini API via genai
// ABOUTME: One model call returns interleaved text and inline image parts
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/harper/marcusbot/internal/models"
	"github.com/harper/marcusbot/internal/retry"
)

// GenerateContent sends prompt, plus image as an inline-data part when
// present, in one call and maps the response parts onto a Response.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, image []byte, cfg GenerateConfig) (*models.Response, error) {
	if err := cfg.Validate(); err != nil {
		return nil, retry.NewPermanent(err)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, http.DetectContentType(image)))
	}

	modalities := make([]string, 0, len(cfg.Modalities))
	for _, m := range cfg.Modalities {
		modalities = append(modalities, string(m))
	}

	result, err := c.genai.Models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:        genai.Ptr(cfg.Temperature),
			ResponseModalities: modalities,
		})
	if err != nil {
		return nil, classifyGenAIError(ctx, fmt.Errorf("generate content: %w", err))
	}
	return toResponse(result)
}

func toResponse(result *genai.GenerateContentResponse) (*models.Response, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, retry.NewPermanent(errors.New("no candidates returned"))
	}

	resp := &models.Response{}
	for _, p := range result.Candidates[0].Content.Parts {
		switch {
		case p == nil || p.Thought:
		case p.InlineData != nil && len(p.InlineData.Data) > 0:
			mime := p.InlineData.MIMEType
			if mime == "" {
				mime = http.DetectContentType(p.InlineData.Data)
			}
			resp.Parts = append(resp.Parts, models.Part{Image: &models.InlineImage{MIMEType: mime, Data: p.InlineData.Data}})
		case p.Text != "":
			resp.Parts = append(resp.Parts, models.Part{Text: p.Text})
		}
	}
	if len(resp.Parts) == 0 {
		return nil, retry.NewPermanent(errors.New("response contained no text or image parts"))
	}
	return resp, nil
}

// classifyGenAIError tags genai errors for the retry layer
func classifyGenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return retry.FromStatus(apiErr.Code, 0, err)
	}
	if retry.ClassOf(err) == retry.Transient {
		return retry.NewTransient(err)
	}
	return retry.NewPermanent(err)
}
