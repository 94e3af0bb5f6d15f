package agent

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spokenURLRe        = regexp.MustCompile(`https?://\S+`)
	spokenFencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	spokenInlineCodeRe = regexp.MustCompile("`[^`]*`")
	spokenMDLinkRe     = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
)

// SanitizeSpokenText strips markup and symbol noise from a model reply before
// it reaches the platform's speech pipeline. The transcript keeps the raw
// reply; only the spoken form is cleaned.
func SanitizeSpokenText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	raw = spokenFencedCodeRe.ReplaceAllString(raw, " ")
	raw = spokenInlineCodeRe.ReplaceAllString(raw, " ")
	raw = spokenMDLinkRe.ReplaceAllString(raw, "$1")
	raw = spokenURLRe.ReplaceAllString(raw, " ")

	raw = strings.NewReplacer(
		"*", " ",
		"_", " ",
		"\\", " ",
		"|", " ",
		"#", " ",
		"~", " ",
		"<", " ",
		">", " ",
	).Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	prevSpace := true

	for _, r := range raw {
		switch {
		case r == '‍' || r == '️' || r == '⃣':
			continue
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsControl(r):
			continue
		case unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
			// Emoji and symbol glyphs sound wrong when read aloud.
			continue
		case isSpokenSafePunctuation(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsPunct(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// Currency and dates must survive: amounts due are read to the customer.
func isSpokenSafePunctuation(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ':', ';', '\'', '"', '-', '(', ')', '/':
		return true
	default:
		return false
	}
}
