package synth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/synth"
)

func TestResolveLanguageDisplayNames(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"中文":    "all_zh",
		"英文":    "en",
		"日文":    "all_ja",
		"中英混合":  "zh",
		"日英混合":  "ja",
		"多语种混合": "auto",
	}

	for display, want := range cases {
		got, err := synth.ResolveLanguage(display)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestResolveLanguageEngineTagsPassThrough(t *testing.T) {
	t.Parallel()

	for _, tag := range []string{"all_zh", "en", "all_ja", "zh", "ja", "auto"} {
		got, err := synth.ResolveLanguage(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}
}

func TestResolveLanguageUnknown(t *testing.T) {
	t.Parallel()

	_, err := synth.ResolveLanguage("klingon")
	require.Error(t, err)
	assert.True(t, core.IsMissingParameter(err))
}

func TestResolveCutStrategyKnown(t *testing.T) {
	t.Parallel()

	strategies := []string{
		synth.CutNone,
		synth.CutFourSentences,
		synth.CutFiftyChars,
		synth.CutChinesePeriod,
		synth.CutEnglishPeriod,
		synth.CutAnyPunctuation,
	}

	for _, strategy := range strategies {
		got, err := synth.ResolveCutStrategy(strategy)
		require.NoError(t, err)
		assert.Equal(t, strategy, got)
	}
}

func TestResolveCutStrategyUnknown(t *testing.T) {
	t.Parallel()

	_, err := synth.ResolveCutStrategy("every other word")
	require.Error(t, err)
	assert.True(t, core.IsMissingParameter(err))
}
