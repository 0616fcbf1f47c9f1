package helpers

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"query":"go"}`, `{"query":"go"}`},
		{"fenced", "```json\n{\"url\":\"https://a\"}\n```", `{"url":"https://a"}`},
		{"prose prefix", `Sure, here you go: {"topic":"ai","days":3} thanks`, `{"topic":"ai","days":3}`},
		{"brackets inside strings", `{"content":"a } b { c"}`, `{"content":"a } b { c"}`},
		{"escaped quote", `{"q":"say \"hi\" }"}`, `{"q":"say \"hi\" }"}`},
		{"array", `[1,[2,3]]`, `[1,[2,3]]`},
		{"bom", "\uFEFF{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if err != nil {
				t.Fatalf("ExtractJSON(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSONNoValue(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "plain words", `{"open":`, `{"a":1]`} {
		if _, err := ExtractJSON(in); !errors.Is(err, ErrNoJSON) {
			t.Fatalf("ExtractJSON(%q): expected ErrNoJSON, got %v", in, err)
		}
	}
}
