package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// MaskSensitive masks card numbers and email addresses in conversation text
// before it is sent to an external analysis model. Phone numbers are left
// intact: the callee number doubles as the participant identity in action log
// lines and is needed to correlate analysis output with the call.
func MaskSensitive(input string) (masked string, changed bool) {
	out := cardPattern.ReplaceAllString(input, "[REDACTED_CARD]")
	changed = out != input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out

	return next, changed
}
