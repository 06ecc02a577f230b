package intent

import "strings"

// Repair applies a best-effort normalization pass to model output before
// JSON parsing. Model text is adversarial: fenced, chatty, truncated or
// quoted with typographic characters. Repair never fails; it returns its
// best candidate and leaves rejection to the JSON decoder.
func Repair(raw string) string {
	s := strings.TrimSpace(raw)
	s = stripFences(s)
	s = sliceToPayload(s)
	if s == "" {
		return s
	}
	s = normalizeQuotes(s)
	s = dropTrailingCommas(s)
	s = closeOpenTokens(s)
	return s
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Language tag on the opening fence, e.g. ```json
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// sliceToPayload cuts leading/trailing prose around the first JSON
// opener. The tail is kept: truncation is handled by closeOpenTokens.
func sliceToPayload(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	s = s[start:]
	// Trim prose after the last closer, if any closer exists.
	if end := strings.LastIndexAny(s, "}]"); end >= 0 {
		s = s[:end+1]
	}
	return s
}

// normalizeQuotes rewrites typographic double quotes to ASCII ones.
func normalizeQuotes(s string) string {
	replacer := strings.NewReplacer(
		"“", `"`, // left double quote
		"”", `"`, // right double quote
		"‘", "'", // left single quote
		"’", "'", // right single quote
	)
	return replacer.Replace(s)
}

// dropTrailingCommas removes commas that directly precede a closer,
// ignoring commas inside string literals.
func dropTrailingCommas(s string) string {
	var out []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // skip the comma
			}
		}
		out = append(out, c)
	}
	return string(out)
}

// closeOpenTokens terminates an unclosed string literal and appends
// closers for any unbalanced braces/brackets, in nesting order.
func closeOpenTokens(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
