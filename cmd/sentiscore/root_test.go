package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spacesedan/sentiscore/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexiconSettings() config.Settings {
	return config.Settings{
		Model:     "",
		Backend:   "lexicon",
		ModelDir:  config.DEFAULT_MODEL_DIR,
		MaxLength: config.DEFAULT_MAX_LENGTH,
		Padding:   config.DEFAULT_PADDING,
		CacheTTL:  config.DEFAULT_CACHE_TTL,
	}
}

func run(t *testing.T, settings config.Settings, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(settings)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootDefaultExamples(t *testing.T) {
	out, err := run(t, lexiconSettings(), "")
	require.NoError(t, err)

	blocks := strings.Split(strings.TrimSpace(out), strings.Repeat("-", 80))
	require.Len(t, blocks, 4) // three results and the trailing rule
	for i, text := range exampleTexts {
		assert.Contains(t, blocks[i], "Text: "+text)
		assert.Contains(t, blocks[i], "Sentiment score (1-5): ")
		assert.Contains(t, blocks[i], "Class probabilities: [")
	}
}

func TestRootTextsFromArgs(t *testing.T) {
	out, err := run(t, lexiconSettings(), "", "I love it, fantastic!", "--format", "json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &result))
	assert.Equal(t, "I love it, fantastic!", result["text"])
	assert.Equal(t, "lexicon", result["backend"])
	assert.GreaterOrEqual(t, result["score"], float64(4))
}

func TestRootStdin(t *testing.T) {
	out, err := run(t, lexiconSettings(), "great stuff\n\n  \nawful stuff\n", "--stdin", "-f", "json")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"text":"great stuff"`)
	assert.Contains(t, lines[1], `"text":"awful stuff"`)
}

func TestRootStdinEmpty(t *testing.T) {
	for _, stdin := range []string{"", "\n  \n\t\n"} {
		out, err := run(t, lexiconSettings(), stdin, "--stdin")
		require.NoError(t, err)
		assert.Empty(t, out)
	}
}

func TestRootStdinWithArgs(t *testing.T) {
	out, err := run(t, lexiconSettings(), "from stdin\n", "--stdin", "from args")
	assert.ErrorContains(t, err, "--stdin")
	assert.Empty(t, out)
}

func TestRootFlagsOverrideSettings(t *testing.T) {
	_, err := run(t, lexiconSettings(), "", "text", "--backend", "caffe")
	assert.ErrorContains(t, err, "unknown sentiment backend")

	_, err = run(t, lexiconSettings(), "", "text", "--padding", "left")
	assert.ErrorContains(t, err, "padding")
}

func TestRootRejectsEmptyText(t *testing.T) {
	_, err := run(t, lexiconSettings(), "", "   ")
	assert.ErrorContains(t, err, "text is empty")
}

func TestRootUnknownFormat(t *testing.T) {
	_, err := run(t, lexiconSettings(), "", "text", "--format", "yaml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	assert.Equal(t, strings.Repeat("ż", 40)+"...", preview(strings.Repeat("ż", 50)))
}
