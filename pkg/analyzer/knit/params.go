package knit

import (
	"regexp"
	"strings"
)

var annotationUsePattern = regexp.MustCompile(`@[\w.]+(?::[\w.]+)?(?:\([^)]*\))?`)

// closers maps opening brackets to their closing bracket.
var closers = map[byte]byte{'(': ')', '<': '>', '[': ']', '{': '}'}

// firstParens returns the contents of the first balanced parenthesis group in s.
func firstParens(s string) (string, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return "", false
	}
	end := matchingClose(s, open)
	if end < 0 {
		return "", false
	}
	return s[open+1 : end], true
}

// matchingClose returns the index of the bracket closing s[open], or -1.
func matchingClose(s string, open int) int {
	want := closers[s[open]]
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case s[open]:
			depth++
		case want:
			if want == '>' && i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep, ignoring separators nested in brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == '<' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '>':
			if i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// indexTopLevel returns the first index of c in s outside brackets, or -1.
func indexTopLevel(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '>':
			if i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// paramType extracts the declared type of one parameter ("val a: A = x" -> "A").
func paramType(param string) string {
	param = annotationUsePattern.ReplaceAllString(param, "")
	colon := indexTopLevel(param, ':')
	if colon < 0 {
		return ""
	}
	typ := param[colon+1:]
	if eq := indexTopLevel(typ, '='); eq >= 0 {
		typ = typ[:eq]
	}
	return strings.TrimSpace(typ)
}

// parameterTypes returns the declared types inside the first parenthesis group of s.
func parameterTypes(s string) []string {
	inner, ok := firstParens(s)
	if !ok || strings.TrimSpace(inner) == "" {
		return nil
	}
	var types []string
	for _, part := range splitTopLevel(inner, ',') {
		if t := paramType(part); t != "" {
			types = append(types, t)
		}
	}
	return types
}

var leadingAnnotationsPattern = regexp.MustCompile(`^\s*(?:@[\w.]+(?::[\w.]+)?(?:\([^)]*\))?\s*)*`)

// returnType reads the type after the first top-level ':' in the text that
// follows a function's parameter list. Annotations right after the colon
// are skipped. It returns "" when the function has no declared return type.
func returnType(rest string) string {
	colon := indexTopLevel(rest, ':')
	if colon < 0 {
		return ""
	}
	if body := strings.IndexAny(rest, "{="); body >= 0 && body < colon {
		return ""
	}

	typ := leadingAnnotationsPattern.ReplaceAllString(rest[colon+1:], "")

	depth := 0
	end := len(typ)
scan:
	for i := 0; i < len(typ); i++ {
		switch c := typ[i]; c {
		case '<', '(':
			depth++
		case '>':
			if i > 0 && typ[i-1] == '-' {
				continue
			}
			depth--
		case ')':
			depth--
		case '{', '=', '\n':
			if depth <= 0 {
				end = i
				break scan
			}
		}
	}
	typ = strings.TrimSpace(typ[:end])
	if i := strings.Index(typ, " where "); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	return typ
}
