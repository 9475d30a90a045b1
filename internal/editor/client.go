// Package editor sends a page image and an editing instruction to the Gemini
// image model and returns the edited image.
package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/noteclean/internal/filehandler"
)

// Generator is the subset of the genai SDK used by Client.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client edits images through a Generator.
type Client struct {
	gen            Generator
	model          string
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the model ID. Empty keeps the current model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithRequestTimeout bounds each Edit call. Zero means no timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// New creates a Client over gen.
func New(gen Generator, opts ...Option) *Client {
	c := &Client{gen: gen, model: GetModelName()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGeminiClient creates a genai client for the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewFromAPIKey builds a Client backed by the Gemini API. When the genai
// client cannot be created (typically a missing key) the returned Client is
// still usable: every Edit fails with the construction error, which callers
// record per item.
func NewFromAPIKey(ctx context.Context, apiKey string, opts ...Option) *Client {
	client, err := NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini client unavailable; edits will fail until a key is configured")
		return New(unavailable{err: err}, opts...)
	}
	return New(client.Models, opts...)
}

type unavailable struct {
	err error
}

func (u unavailable) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, u.err
}

// Model returns the model ID used for edits.
func (c *Client) Model() string {
	return c.model
}

// Edit sends img and the instruction for mode to the model and returns the
// first inline image of the first candidate. Remote errors are returned
// wrapped but otherwise unchanged; there are no retries.
func (c *Client) Edit(ctx context.Context, img filehandler.Image, mode Mode) (filehandler.Image, error) {
	if img.IsZero() {
		return filehandler.Image{}, fmt.Errorf("%w: empty image data", ErrInvalidInput)
	}
	if img.MIMEType == "" {
		return filehandler.Image{}, fmt.Errorf("%w: missing media type", ErrInvalidInput)
	}
	if mode == nil {
		mode = DefaultMode()
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	startTime := time.Now()
	log.Debug().
		Str("model", c.model).
		Str("mode", mode.Name()).
		Int("image_bytes", len(img.Data)).
		Str("image_mime", img.MIMEType).
		Msg("Sending image to Gemini for editing")

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}},
			{Text: mode.instruction()},
		},
	}}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if ratio := mode.aspectRatio(); ratio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: ratio}
	}

	resp, err := c.gen.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(startTime)).Msg("Gemini image edit failed")
		return filehandler.Image{}, fmt.Errorf("image edit failed: %w", err)
	}

	out, ok := firstInlineImage(resp)
	if !ok {
		return filehandler.Image{}, ErrNoImage
	}

	log.Debug().
		Int("output_bytes", len(out.Data)).
		Str("output_mime", out.MIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image edit complete")

	return out, nil
}

// firstInlineImage returns the first part of the first candidate that carries
// inline data. A missing media type defaults to image/png.
func firstInlineImage(resp *genai.GenerateContentResponse) (filehandler.Image, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return filehandler.Image{}, false
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return filehandler.Image{}, false
	}
	for _, part := range candidate.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return filehandler.Image{MIMEType: mimeType, Data: part.InlineData.Data}, true
	}
	return filehandler.Image{}, false
}
