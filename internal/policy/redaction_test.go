package policy

import (
	"strings"
	"testing"
)

func TestMaskSensitive(t *testing.T) {
	input := "My card is 4242 4242 4242 4242 and my email is sam@example.com."
	out, changed := MaskSensitive(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	if !strings.Contains(out, "[REDACTED_CARD]") {
		t.Fatalf("output missing card marker: %q", out)
	}
	if !strings.Contains(out, "[REDACTED_EMAIL]") {
		t.Fatalf("output missing email marker: %q", out)
	}
}

func TestMaskSensitiveKeepsPhoneNumbers(t *testing.T) {
	input := "Call me back at +15551234567 tomorrow."
	out, changed := MaskSensitive(input)
	if changed {
		t.Fatalf("changed = true, want false (output %q)", out)
	}
	if !strings.Contains(out, "+15551234567") {
		t.Fatalf("phone number removed: %q", out)
	}
}
