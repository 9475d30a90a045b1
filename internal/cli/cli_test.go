package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fpang/noteclean/internal/config"
	"github.com/fpang/noteclean/internal/editor"
)

func TestFormatDurationShort(t *testing.T) {
	assert.Equal(t, "0:05", FormatDurationShort(5*time.Second))
	assert.Equal(t, "2:03", FormatDurationShort(123*time.Second))
	assert.Equal(t, "1:01:01", FormatDurationShort(time.Hour+61*time.Second))
}

func TestPages(t *testing.T) {
	assert.Equal(t, "1 page", Pages(1))
	assert.Equal(t, "3 pages", Pages(3))
}

func TestPromptForInstruction(t *testing.T) {
	var out bytes.Buffer
	got := PromptForInstruction(strings.NewReader("\n   \nReplace Draft with Final\n"), &out)
	assert.Equal(t, "Replace Draft with Final", got)
	assert.Equal(t, 3, strings.Count(out.String(), "Describe the text change"))

	assert.Equal(t, "last line", PromptForInstruction(strings.NewReader("last line"), &out))
	assert.Empty(t, PromptForInstruction(strings.NewReader(""), &out))
}

func TestDescribeFailure(t *testing.T) {
	assert.Contains(t, DescribeFailure(editor.KindNoKey.String()), "GEMINI_API_KEY")
	assert.Contains(t, DescribeFailure("quota"), "quota")
	assert.Contains(t, DescribeFailure("network_error"), "Network")
	assert.Equal(t, "Edit failed", DescribeFailure(""))
}

func TestInitClients_WithoutAWSOrKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("NOTECLEAN_SSM_API_KEY_PARAM", "")

	cfg := config.DefaultConfig()
	clients := InitClients(t.Context(), cfg)

	assert.False(t, clients.HasKey)
	assert.Nil(t, clients.Exporter)
	assert.Equal(t, editor.DefaultModelName, clients.Editor.Model())
}

func TestInitClients_WithKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("NOTECLEAN_SSM_API_KEY_PARAM", "")

	cfg := config.DefaultConfig()
	cfg.Gemini.Model = editor.ModelGemini3ProImage
	clients := InitClients(t.Context(), cfg)

	assert.True(t, clients.HasKey)
	assert.Equal(t, editor.ModelGemini3ProImage, clients.Editor.Model())
}
