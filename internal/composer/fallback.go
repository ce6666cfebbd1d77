package composer

import "regexp"

// Deterministic local transform used when the generation backend is
// unavailable for a fix-this request. Substitutions are fixed so the
// feature never hard-fails, even with no network access.

const (
	fallbackPrefix = "FIXED IT: "
	fallbackSuffix = " ...you're welcome."
)

var fixSubstitutions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\btrash\b`), "THE GREATEST"},
	{regexp.MustCompile(`(?i)\bscam\b`), "WILD LEARNING ADVENTURE"},
	{regexp.MustCompile(`(?i)\bhate\b`), "LOVE"},
	{regexp.MustCompile(`(?i)\bterrible\b`), "MAGNIFICENT"},
	{regexp.MustCompile(`(?i)\bworst\b`), "BEST"},
	{regexp.MustCompile(`(?i)\bawful\b`), "AWE-INSPIRING"},
	{regexp.MustCompile(`(?i)\bgarbage\b`), "A MASTERPIECE"},
	{regexp.MustCompile(`(?i)\bbroken\b`), "FLAWLESS"},
	{regexp.MustCompile(`(?i)\bdead\b`), "THRIVING"},
	{regexp.MustCompile(`(?i)\buseless\b`), "REVOLUTIONARY"},
	{regexp.MustCompile(`(?i)\bboring\b`), "ELECTRIFYING"},
}

// fallbackFix rewrites the text with the fixed substitution table and
// wraps it in the fallback template
func fallbackFix(text string, maxChars int) string {
	fixed := text
	for _, sub := range fixSubstitutions {
		fixed = sub.pattern.ReplaceAllString(fixed, sub.replacement)
	}
	return truncate(fallbackPrefix+fixed+fallbackSuffix, maxChars)
}
