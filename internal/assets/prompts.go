// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time, one per editing mode.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// --- Static prompts (no dynamic data) ---

// RemoveBrandingPrompt asks the model to erase logos, watermarks and
// corporate branding and inpaint the background.
//
//go:embed prompts/remove-branding.txt
var RemoveBrandingPrompt string

// ConvertOrientationPrompt asks the model to re-lay out a landscape page as
// a 9:16 portrait page while keeping every piece of text.
//
//go:embed prompts/convert-orientation.txt
var ConvertOrientationPrompt string

// RemoveTextPrompt asks the model to erase all visible text.
//
//go:embed prompts/remove-text.txt
var RemoveTextPrompt string

// --- Dynamic prompt templates ---

//go:embed prompts/customize-text.txt
var customizeTextTemplate string

var customizeTextTmpl = template.Must(template.New("customize-text").Parse(customizeTextTemplate))

// CustomizeTextData holds the dynamic data injected into the customize-text template.
type CustomizeTextData struct {
	// Instruction is the user's free-form edit, e.g. "Change 'Draft' to 'Final'".
	Instruction string
}

// RenderCustomizeTextPrompt renders the customize-text template around the
// user's instruction. Surrounding whitespace and a trailing period are
// stripped so the template's own punctuation is not doubled.
func RenderCustomizeTextPrompt(instruction string) string {
	instruction = strings.TrimSuffix(strings.TrimSpace(instruction), ".")
	return renderTemplate(customizeTextTmpl, CustomizeTextData{Instruction: instruction})
}

func renderTemplate(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Execution cannot fail for plain string fields; return whatever rendered.
	_ = tmpl.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}

// Trimmed returns a static prompt without the trailing newline of its file.
func Trimmed(prompt string) string {
	return strings.TrimSpace(prompt)
}
