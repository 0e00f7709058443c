package internal

import (
	"regexp"
	"strings"
)

// Tolerant extraction of a JSON object from raw model output. Models wrap
// answers in markdown fences, prepend prose, leave keys unquoted, and
// dangle trailing commas; the repairs here are purely syntactic and are
// only attempted when a strict parse of the extracted text fails.

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONObject locates the first balanced brace-delimited object in
// raw text, looking inside markdown fences first.
func ExtractJSONObject(raw string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		if obj, ok := balancedObject(m[1]); ok {
			return obj, true
		}
	}
	return balancedObject(raw)
}

// balancedObject scans for the first top-level {...} span, tracking
// string literals and escapes so braces inside values do not miscount.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// RepairJSON applies light syntactic fixes: quoting bare keys and
// removing trailing commas.
func RepairJSON(s string) string {
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaRe.ReplaceAllString(s, `$1`)
	return s
}
