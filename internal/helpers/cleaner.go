package helpers

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when no balanced JSON value can be located.
var ErrNoJSON = errors.New("no balanced JSON object/array found")

// ExtractJSON finds and returns the first JSON object or array in s.
// Models often wrap tool arguments in Markdown fences or prefix them with
// prose, so a fenced block is unwrapped first and the remainder is scanned
// for a balanced {...} or [...] while ignoring brackets inside strings.
func ExtractJSON(s string) (string, error) {
	s = trimBOM(strings.TrimSpace(s))
	if inner, ok := UnwrapFence(s); ok {
		s = strings.TrimSpace(inner)
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		if out, ok := balancedFrom(s, i); ok {
			return out, nil
		}
	}
	return "", ErrNoJSON
}

// UnwrapFence returns the body of the first fenced block when s starts with
// ``` or ~~~ (an optional info string such as "markdown" is dropped).
func UnwrapFence(s string) (string, bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	fence := ""
	switch {
	case strings.HasPrefix(trim, "```"):
		fence = "```"
	case strings.HasPrefix(trim, "~~~"):
		fence = "~~~"
	default:
		return "", false
	}
	rest := trim[len(fence):]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.LastIndex(rest, fence)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

// balancedFrom extracts the JSON value opening at s[start], honouring string
// literals and escape sequences.
func balancedFrom(s string, start int) (string, bool) {
	var (
		stack    = []byte{s[start]}
		inString bool
		escape   bool
	)
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
