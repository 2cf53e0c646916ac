package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	assert.Equal(t, ModeJSON, Mode("JSON"))
	assert.Equal(t, ModeMarkdown, Mode(" markdown "))
	assert.Equal(t, ModeAuto, Mode(""))
	assert.Equal(t, ModeAuto, Mode("yaml"))
}

func TestEffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&out, &errOut, ModeAuto).IsTTY(), "buffers are not terminals")
}

func TestRenderer_MarkdownTable(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Header(1, "Coverage")
	r.KeyValue("Rate", 0.25)
	r.Table([]string{"Dimension", "Count"}, [][]any{{"Persona", 8}})

	got := out.String()
	assert.Contains(t, got, "# Coverage")
	assert.Contains(t, got, "- **Rate:** 0.25")
	assert.Contains(t, got, "| Dimension | Count |")
	assert.Contains(t, got, "| Persona | 8 |")
}

func TestRenderer_TextHasNoColourWithoutTTY(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Header(1, "Graph")
	r.StatusLine("Payroll", "success", "2 services")
	r.Error("boom")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "✓ Payroll 2 services")
	assert.Contains(t, errOut.String(), "boom")
}

func TestRenderer_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, out.String())
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "## Levels\n", FormatHeader(2, "Levels"))
	assert.Equal(t, "# X\n", FormatHeader(0, "X"))
	assert.Equal(t, "- **State:** idle", FormatKeyValue("State", "idle"))
	assert.Equal(t, "-", Join(nil))
	assert.Equal(t, "a, b", Join([]string{"a", "b"}))
}
