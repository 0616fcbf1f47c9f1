package helpers

import "testing"

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"schemeless host and dot segments", "Example.com/news/../tech/latest", "https://example.com/tech/latest"},
		{"default port tracking params and fragment", "http://news.example.com:80/article?id=123&utm_source=rss#section", "http://news.example.com/article?id=123"},
		{"sorted query keeps trailing slash", "https://example.com/path/?b=2&a=1&fbclid=xyz", "https://example.com/path/?a=1&b=2"},
		{"protocol relative", "//blog.example.com/post/42?utm_medium=email", "https://blog.example.com/post/42"},
		{"repeated slashes", "https://example.com//a//b///c", "https://example.com/a/b/c"},
		{"non default port kept", "https://Example.com:8443/x", "https://example.com:8443/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "https://"} {
		if _, err := CanonicalURL(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
