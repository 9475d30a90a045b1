package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/noteclean/internal/assets"
)

// Mode selects which edit is applied to a page. The set of variants is
// closed: RemoveBranding, ConvertOrientation, RemoveText and CustomizeText.
type Mode interface {
	// Name is the stable identifier used by the API and CLI.
	Name() string
	// Title is a human-readable label.
	Title() string

	instruction() string
	aspectRatio() string
}

// RemoveBranding strips logos, watermarks and corporate branding.
type RemoveBranding struct{}

// ConvertOrientation re-lays out a landscape page as 9:16 portrait.
type ConvertOrientation struct{}

// RemoveText strips all visible text.
type RemoveText struct{}

// CustomizeText applies a free-form text edit while matching the original typography.
type CustomizeText struct {
	Instruction string
}

const (
	ModeNameRemoveBranding     = "remove-branding"
	ModeNameConvertOrientation = "convert"
	ModeNameRemoveText         = "remove-text"
	ModeNameCustomizeText      = "customize-text"
)

// PortraitAspectRatio is the output aspect ratio requested for ConvertOrientation.
const PortraitAspectRatio = "9:16"

func (RemoveBranding) Name() string        { return ModeNameRemoveBranding }
func (RemoveBranding) Title() string       { return "Remove branding" }
func (RemoveBranding) aspectRatio() string { return "" }
func (RemoveBranding) instruction() string {
	return assets.Trimmed(assets.RemoveBrandingPrompt)
}

func (ConvertOrientation) Name() string        { return ModeNameConvertOrientation }
func (ConvertOrientation) Title() string       { return "Convert to vertical" }
func (ConvertOrientation) aspectRatio() string { return PortraitAspectRatio }
func (ConvertOrientation) instruction() string {
	return assets.Trimmed(assets.ConvertOrientationPrompt)
}

func (RemoveText) Name() string        { return ModeNameRemoveText }
func (RemoveText) Title() string       { return "Remove text" }
func (RemoveText) aspectRatio() string { return "" }
func (RemoveText) instruction() string {
	return assets.Trimmed(assets.RemoveTextPrompt)
}

func (CustomizeText) Name() string        { return ModeNameCustomizeText }
func (CustomizeText) Title() string       { return "Customize text" }
func (CustomizeText) aspectRatio() string { return "" }
func (m CustomizeText) instruction() string {
	return assets.RenderCustomizeTextPrompt(m.Instruction)
}

// Instruction returns the full prompt sent to the model for m.
func Instruction(m Mode) string {
	return m.instruction()
}

// DefaultMode is the mode a fresh session starts in.
func DefaultMode() Mode {
	return RemoveBranding{}
}

// ErrMissingInstruction is returned by ParseMode for customize-text without an instruction.
var ErrMissingInstruction = errors.New("instruction required")

// ModeNames lists the canonical mode names in presentation order.
func ModeNames() []string {
	return []string{ModeNameRemoveBranding, ModeNameConvertOrientation, ModeNameRemoveText, ModeNameCustomizeText}
}

// ParseMode resolves a mode name (case-insensitive, with the legacy aliases
// "clean" and "convert-vertical"). instruction is only used, and required,
// for customize-text.
func ParseMode(name, instruction string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ModeNameRemoveBranding, "clean":
		return RemoveBranding{}, nil
	case ModeNameConvertOrientation, "convert-vertical":
		return ConvertOrientation{}, nil
	case ModeNameRemoveText:
		return RemoveText{}, nil
	case ModeNameCustomizeText, "customize":
		if strings.TrimSpace(instruction) == "" {
			return nil, fmt.Errorf("%w: mode %s", ErrMissingInstruction, ModeNameCustomizeText)
		}
		return CustomizeText{Instruction: strings.TrimSpace(instruction)}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q (valid: %s)", name, strings.Join(ModeNames(), ", "))
	}
}

// ModeView is the JSON shape of a Mode.
type ModeView struct {
	Mode        string `json:"mode"`
	Title       string `json:"title"`
	Instruction string `json:"instruction,omitempty"`
}

// ViewOf returns the JSON view of m.
func ViewOf(m Mode) ModeView {
	v := ModeView{Mode: m.Name(), Title: m.Title()}
	if c, ok := m.(CustomizeText); ok {
		v.Instruction = c.Instruction
	}
	return v
}
