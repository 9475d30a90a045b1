package editor

import "os"

// Gemini image model IDs
//
// | Model Name                | API Model ID                | Use Case                        |
// |---------------------------|-----------------------------|---------------------------------|
// | Gemini 2.5 Flash Image    | gemini-2.5-flash-image      | Fast image edit (default)       |
// | Gemini 3 Pro Image        | gemini-3-pro-image-preview  | Higher fidelity, slower         |
const (
	// ModelGemini25FlashImage is the fast image generation/edit model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// DefaultModelName is the Gemini model used for page edits.
// Can be overridden via GEMINI_MODEL environment variable or config.
const DefaultModelName = ModelGemini25FlashImage

// GetModelName returns the Gemini model to use, resolved from:
//  1. GEMINI_MODEL environment variable (if set)
//  2. Default: gemini-2.5-flash-image
func GetModelName() string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}
