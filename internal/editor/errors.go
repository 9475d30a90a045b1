package editor

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrNoImage is returned when the model response carries no inline image part.
var ErrNoImage = errors.New("no image generated in response")

// ErrInvalidInput is returned before any remote call when the input image is unusable.
var ErrInvalidInput = errors.New("invalid input image")

// Kind categorizes an edit failure.
type Kind int

const (
	// KindUnknown indicates an unclassified failure.
	KindUnknown Kind = iota
	// KindNoKey indicates no API key was configured.
	KindNoKey
	// KindInvalidKey indicates the API key is invalid or revoked.
	KindInvalidKey
	// KindQuotaExceeded indicates the API quota has been exceeded.
	KindQuotaExceeded
	// KindNetwork indicates a connectivity or upstream server problem.
	KindNetwork
	// KindNoImage indicates the model answered without an image.
	KindNoImage
	// KindCanceled indicates the call was canceled or timed out locally.
	KindCanceled
	// KindInvalidInput indicates the image was rejected before the call.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNoKey:
		return "no_key"
	case KindInvalidKey:
		return "invalid_key"
	case KindQuotaExceeded:
		return "quota"
	case KindNetwork:
		return "network_error"
	case KindNoImage:
		return "no_image"
	case KindCanceled:
		return "canceled"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// EditError is a classified edit failure.
type EditError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *EditError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// ErrNoAPIKey is wrapped by every call made through a client built without a key.
var ErrNoAPIKey = errors.New("API key not configured")

// ClassifyError analyzes an error returned by Edit and returns an EditError
// with the appropriate Kind. nil stays nil; an EditError is returned as-is.
func ClassifyError(err error) *EditError {
	if err == nil {
		return nil
	}

	var editErr *EditError
	if errors.As(err, &editErr) {
		return editErr
	}

	switch {
	case errors.Is(err, ErrNoImage):
		return &EditError{Kind: KindNoImage, Message: "The model did not return an image", Err: err}
	case errors.Is(err, ErrInvalidInput):
		return &EditError{Kind: KindInvalidInput, Message: "Image cannot be sent for editing", Err: err}
	case errors.Is(err, ErrNoAPIKey):
		return &EditError{Kind: KindNoKey, Message: "No Gemini API key configured", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &EditError{Kind: KindCanceled, Message: "Edit canceled or timed out", Err: err}
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return classifyAPIError(apiErr, err)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "api_key_invalid") ||
		strings.Contains(errLower, "permission denied"):
		return &EditError{Kind: KindInvalidKey, Message: "API key is invalid or has been revoked", Err: err}

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "resource_exhausted") ||
		strings.Contains(errLower, "rate limit"):
		return &EditError{Kind: KindQuotaExceeded, Message: "API quota exceeded or rate limited", Err: err}

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable") ||
		strings.Contains(errLower, "unavailable"):
		return &EditError{Kind: KindNetwork, Message: "Network error - check your internet connection", Err: err}

	default:
		return &EditError{Kind: KindUnknown, Message: "Edit failed", Err: err}
	}
}

// classifyAPIError categorizes a Gemini API error by HTTP status code.
func classifyAPIError(apiErr *genai.APIError, err error) *EditError {
	switch apiErr.Code {
	case 400:
		return &EditError{Kind: KindInvalidInput, Message: "Bad request - the model rejected the image or instruction", Err: err}
	case 401, 403:
		return &EditError{Kind: KindInvalidKey, Message: "API key is invalid, expired, or lacks permissions", Err: err}
	case 429:
		return &EditError{Kind: KindQuotaExceeded, Message: "API rate limit exceeded - try again later", Err: err}
	case 500, 502, 503, 504:
		return &EditError{Kind: KindNetwork, Message: "Gemini API server error - try again later", Err: err}
	default:
		return &EditError{Kind: KindUnknown, Message: apiErr.Message, Err: err}
	}
}
