package cli

import (
	"github.com/fpang/noteclean/internal/editor"
)

// DescribeFailure turns an item's error kind into advice for the user.
func DescribeFailure(kind string) string {
	switch kind {
	case editor.KindNoKey.String():
		return "No API key configured. Set GEMINI_API_KEY, NOTECLEAN_SSM_API_KEY_PARAM or create ~/.noteclean/credentials.gpg"
	case editor.KindInvalidKey.String():
		return "Invalid API key. Please check your API key and try again"
	case editor.KindNetwork.String():
		return "Network error. Please check your internet connection"
	case editor.KindQuotaExceeded.String():
		return "API quota exceeded. Please try again later or check your usage limits"
	case editor.KindNoImage.String():
		return "The model returned no image. Retrying usually helps"
	case editor.KindInvalidInput.String():
		return "The page could not be sent to the model"
	case editor.KindCanceled.String():
		return "Canceled"
	default:
		return "Edit failed"
	}
}
