// Package extract recovers structured data from model free text.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/jllopis/skillrt/pkg/errors"
)

// JSON decodes the first JSON object or array found in text into out.
// Markdown code fences and surrounding prose are ignored.
// Failures carry errors.CodeParseFailure.
func JSON(text string, out any) error {
	candidate, ok := Find(text)
	if !ok {
		return errors.New(errors.CodeParseFailure, "no JSON object found in model output", nil).
			WithContext("length", len(text))
	}
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return errors.New(errors.CodeParseFailure, "invalid JSON in model output", err)
	}
	return nil
}

// Find returns the first balanced JSON object or array in text.
func Find(text string) (string, bool) {
	text = stripFence(text)
	for start := 0; start < len(text); start++ {
		c := text[start]
		if c != '{' && c != '[' {
			continue
		}
		if end, ok := matchClose(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
	}
	return "", false
}

// stripFence returns the body of the first ``` block, or text unchanged.
func stripFence(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// matchClose finds the bracket closing text[start], skipping string literals.
func matchClose(text string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
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
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
