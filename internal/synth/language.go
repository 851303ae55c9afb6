package synth

import "github.com/book-expert/tts-gateway/internal/core"

// Engine language tags.
const (
	langAllZH = "all_zh"
	langEN    = "en"
	langAllJA = "all_ja"
	langZH    = "zh"
	langJA    = "ja"
	langAuto  = "auto"
)

// languageTags maps the display names used by the public API and the preset
// table to engine language tags. The engine tags themselves are also accepted
// so programmatic callers can skip the display vocabulary.
var languageTags = map[string]string{
	"中文":    langAllZH,
	"英文":    langEN,
	"日文":    langAllJA,
	"中英混合":  langZH,
	"日英混合":  langJA,
	"多语种混合": langAuto,
}

// engineTags is the set of valid engine-side values.
var engineTags = map[string]struct{}{
	langAllZH: {},
	langEN:    {},
	langAllJA: {},
	langZH:    {},
	langJA:    {},
	langAuto:  {},
}

// ResolveLanguage converts a language display name or engine tag to the
// engine tag. Unknown values are reported as a missing parameter named after
// the offending value, matching the lookup-key error taxonomy.
func ResolveLanguage(language string) (string, error) {
	if tag, found := languageTags[language]; found {
		return tag, nil
	}

	if _, found := engineTags[language]; found {
		return language, nil
	}

	return "", core.NewMissingParameterError(language)
}

// Cut strategy names accepted by the engine. CutNone disables cutting.
const (
	CutNone           = "不切"
	CutFourSentences  = "凑四句一切"
	CutFiftyChars     = "凑50字一切"
	CutChinesePeriod  = "按中文句号。切"
	CutEnglishPeriod  = "按英文句号.切"
	CutAnyPunctuation = "按标点符号切"
)

var cutStrategies = map[string]struct{}{
	CutNone:           {},
	CutFourSentences:  {},
	CutFiftyChars:     {},
	CutChinesePeriod:  {},
	CutEnglishPeriod:  {},
	CutAnyPunctuation: {},
}

// ResolveCutStrategy validates a cut strategy name, passing it through
// unchanged. Unknown names are reported like any other absent lookup key.
func ResolveCutStrategy(strategy string) (string, error) {
	if _, found := cutStrategies[strategy]; found {
		return strategy, nil
	}

	return "", core.NewMissingParameterError(strategy)
}
