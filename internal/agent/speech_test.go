package agent

import "testing"

func TestSanitizeSpokenText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops emoji and markdown markers",
			in:   "Sure 😊 **let's** settle this now.",
			want: "Sure let's settle this now.",
		},
		{
			name: "keeps amounts and dates",
			in:   "Your balance of $1,250.00 is due on 09/15.",
			want: "Your balance of $1,250.00 is due on 09/15.",
		},
		{
			name: "keeps markdown link label and removes url",
			in:   "Visit [our portal](https://example.com/pay) to pay.",
			want: "Visit our portal to pay.",
		},
		{
			name: "removes code blocks and inline code",
			in:   "```json\n{\"a\":1}\n```\nAs I said, `ref-42` is noted.",
			want: "As I said, is noted.",
		},
		{
			name: "normalizes odd punctuation spacing",
			in:   "Hello***there__again",
			want: "Hello there again",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeSpokenText(tc.in)
			if got != tc.want {
				t.Fatalf("SanitizeSpokenText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
