package editor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fpang/noteclean/internal/filehandler"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls int

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	deadline bool
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func imageResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

var page = filehandler.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestEdit_ReturnsFirstInlineImage(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(
		&genai.Part{Text: "Here you go"},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/webp", Data: []byte("first")}},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
	)}
	c := New(gen, WithModel("test-model"))

	out, err := c.Edit(context.Background(), page, RemoveBranding{})
	require.NoError(t, err)

	assert.Equal(t, filehandler.Image{MIMEType: "image/webp", Data: []byte("first")}, out)
	assert.Equal(t, "test-model", gen.model)
	assert.Equal(t, 1, gen.calls)
}

func TestEdit_DefaultsMissingMediaTypeToPNG(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte("img")}})}

	out, err := New(gen).Edit(context.Background(), page, RemoveText{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MIMEType)
}

func TestEdit_SendsImageThenInstruction(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("x")}})}

	_, err := New(gen).Edit(context.Background(), page, CustomizeText{Instruction: "Change 'Q1' to 'Q2'"})
	require.NoError(t, err)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "user", gen.contents[0].Role)
	assert.Equal(t, page.Data, parts[0].InlineData.Data)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Contains(t, parts[1].Text, "Change 'Q1' to 'Q2'. When modifying")

	assert.Equal(t, []string{"TEXT", "IMAGE"}, gen.config.ResponseModalities)
	assert.Nil(t, gen.config.ImageConfig)
}

func TestEdit_ConvertRequestsPortraitAspectRatio(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("x")}})}

	_, err := New(gen).Edit(context.Background(), page, ConvertOrientation{})
	require.NoError(t, err)

	require.NotNil(t, gen.config.ImageConfig)
	assert.Equal(t, "9:16", gen.config.ImageConfig.AspectRatio)
}

func TestEdit_NoImage(t *testing.T) {
	tests := map[string]*genai.GenerateContentResponse{
		"nil response":  nil,
		"no candidates": {},
		"text only":     imageResponse(&genai.Part{Text: "I cannot edit this"}),
		"nil content":   {Candidates: []*genai.Candidate{{}}},
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(&fakeGenerator{resp: resp}).Edit(context.Background(), page, RemoveBranding{})
			assert.ErrorIs(t, err, ErrNoImage)
			assert.Equal(t, KindNoImage, ClassifyError(err).Kind)
		})
	}
}

func TestEdit_OnlyFirstCandidateIsConsidered(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: "no image"}}}},
		{Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("x")}}}}},
	}}

	_, err := New(&fakeGenerator{resp: resp}).Edit(context.Background(), page, RemoveBranding{})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestEdit_PropagatesRemoteError(t *testing.T) {
	remote := errors.New("boom")
	gen := &fakeGenerator{err: remote}

	_, err := New(gen).Edit(context.Background(), page, RemoveBranding{})
	assert.ErrorIs(t, err, remote)
	assert.Equal(t, 1, gen.calls, "no retries")
}

func TestEdit_ValidatesInputBeforeCalling(t *testing.T) {
	gen := &fakeGenerator{}
	c := New(gen)

	_, err := c.Edit(context.Background(), filehandler.Image{MIMEType: "image/png"}, RemoveBranding{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.Edit(context.Background(), filehandler.Image{Data: []byte("x")}, RemoveBranding{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, gen.calls)
}

func TestEdit_RequestTimeout(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("x")}})}

	_, err := New(gen).Edit(context.Background(), page, RemoveBranding{})
	require.NoError(t, err)
	assert.False(t, gen.deadline)

	_, err = New(gen, WithRequestTimeout(time.Minute)).Edit(context.Background(), page, RemoveBranding{})
	require.NoError(t, err)
	assert.True(t, gen.deadline)
}

func TestNewFromAPIKey_WithoutKeyFailsEachEdit(t *testing.T) {
	c := NewFromAPIKey(context.Background(), "")

	_, err := c.Edit(context.Background(), page, RemoveBranding{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, KindNoKey, ClassifyError(err).Kind)
}

func TestModelSelection(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "")
	assert.Equal(t, DefaultModelName, New(&fakeGenerator{}).Model())

	t.Setenv("GEMINI_MODEL", ModelGemini3ProImage)
	assert.Equal(t, ModelGemini3ProImage, New(&fakeGenerator{}).Model())
	assert.Equal(t, "explicit", New(&fakeGenerator{}, WithModel("explicit")).Model())
	assert.Equal(t, ModelGemini3ProImage, New(&fakeGenerator{}, WithModel("")).Model())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"no image", fmt.Errorf("wrap: %w", ErrNoImage), KindNoImage},
		{"canceled", fmt.Errorf("x: %w", context.Canceled), KindCanceled},
		{"deadline", context.DeadlineExceeded, KindCanceled},
		{"api 403", &genai.APIError{Code: 403, Message: "denied"}, KindInvalidKey},
		{"api 429", fmt.Errorf("image edit failed: %w", &genai.APIError{Code: 429}), KindQuotaExceeded},
		{"api 503", &genai.APIError{Code: 503}, KindNetwork},
		{"api 400", &genai.APIError{Code: 400}, KindInvalidInput},
		{"api other", &genai.APIError{Code: 418, Message: "teapot"}, KindUnknown},
		{"key text", errors.New("API key not valid. Please pass a valid API key."), KindInvalidKey},
		{"quota text", errors.New("Resource exhausted"), KindQuotaExceeded},
		{"network text", errors.New("dial tcp: no such host"), KindNetwork},
		{"unknown", errors.New("something odd"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, ClassifyError(nil))

	classified := &EditError{Kind: KindQuotaExceeded, Message: "m"}
	assert.Same(t, classified, ClassifyError(fmt.Errorf("w: %w", classified)))
}
