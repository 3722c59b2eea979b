package reasoning

import (
	"encoding/json"
	"strings"
)

// parseShaped returns the JSON in raw if it matches shape. When raw is not
// valid as-is it gets exactly one repair pass: code fences are stripped, the
// outermost object/array is cut out, and trailing commas are removed.
func parseShaped(raw string, shape Shape) (json.RawMessage, bool, bool) {
	trimmed := strings.TrimSpace(raw)
	if matchesShape(trimmed, shape) {
		return json.RawMessage(trimmed), false, true
	}

	repaired := repair(trimmed, shape)
	if repaired != "" && matchesShape(repaired, shape) {
		return json.RawMessage(repaired), true, true
	}
	return nil, false, false
}

func matchesShape(s string, shape Shape) bool {
	if s == "" || !json.Valid([]byte(s)) {
		return false
	}
	switch shape {
	case ShapeObject:
		return s[0] == '{'
	case ShapeArray:
		return s[0] == '['
	}
	return true
}

func repair(s string, shape Shape) string {
	s = stripFences(s)

	open, close := byte('{'), byte('}')
	if shape == ShapeArray {
		open, close = '[', ']'
	}
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return ""
	}
	return removeTrailingCommas(s[start : end+1])
}

func stripFences(s string) string {
	i := strings.Index(s, "```")
	if i < 0 {
		return s
	}
	rest := s[i+3:]
	// drop the language tag line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if !strings.ContainsAny(tag, "{[") {
			rest = rest[nl+1:]
		}
	}
	if j := strings.Index(rest, "```"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// removeTrailingCommas drops commas that directly precede a closing bracket,
// leaving string literals untouched.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
