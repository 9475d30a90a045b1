package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		want        Mode
	}{
		{"remove-branding", "", RemoveBranding{}},
		{"clean", "", RemoveBranding{}},
		{"CONVERT", "", ConvertOrientation{}},
		{"convert-vertical", "", ConvertOrientation{}},
		{"remove-text", "ignored", RemoveText{}},
		{"customize-text", "  Fix the typo ", CustomizeText{Instruction: "Fix the typo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.name, tt.instruction)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMode_Errors(t *testing.T) {
	_, err := ParseMode("customize-text", "   ")
	assert.ErrorIs(t, err, ErrMissingInstruction)

	_, err = ParseMode("sharpen", "")
	assert.ErrorContains(t, err, "unknown mode")

	_, err = ParseMode("", "")
	assert.Error(t, err)
}

func TestModeNamesRoundTrip(t *testing.T) {
	for _, name := range ModeNames() {
		m, err := ParseMode(name, "instruction")
		require.NoError(t, err)
		assert.Equal(t, name, m.Name())
		assert.NotEmpty(t, m.Title())
		assert.NotEmpty(t, Instruction(m))
	}
}

func TestAspectRatioOnlyForConvert(t *testing.T) {
	assert.Equal(t, PortraitAspectRatio, ConvertOrientation{}.aspectRatio())
	assert.Empty(t, RemoveBranding{}.aspectRatio())
	assert.Empty(t, RemoveText{}.aspectRatio())
	assert.Empty(t, CustomizeText{Instruction: "x"}.aspectRatio())
}

func TestViewOf(t *testing.T) {
	assert.Equal(t, ModeView{Mode: "convert", Title: "Convert to vertical"}, ViewOf(ConvertOrientation{}))
	assert.Equal(t,
		ModeView{Mode: "customize-text", Title: "Customize text", Instruction: "Swap logo text"},
		ViewOf(CustomizeText{Instruction: "Swap logo text"}))
	assert.Equal(t, RemoveBranding{}, DefaultMode())
}
