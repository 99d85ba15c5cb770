package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmRequiresExplicitYes(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"yes\n": true,
		"YES\n": true,
		"n\n":   false,
		"no\n":  false,
		"\n":    false, // no default-yes
		"ok\n":  false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(input), &out, "continue?")
		if err != nil {
			t.Fatalf("input %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("input %q: got %v, want %v", input, got, want)
		}
	}
}
