// Package llmjson provides robust JSON extraction from LLM responses.
// Model output often wraps JSON in markdown fences or prose; the extractor
// tries progressively more lenient strategies before giving up.
package llmjson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseMethod indicates how the JSON was extracted.
type ParseMethod string

const (
	// ParseMethodDirect means JSON was parsed directly.
	ParseMethodDirect ParseMethod = "direct"
	// ParseMethodExtracted means JSON was extracted from surrounding text.
	ParseMethodExtracted ParseMethod = "extracted"
	// ParseMethodLenient means JSON required error recovery.
	ParseMethodLenient ParseMethod = "lenient"
	// ParseMethodFailed means JSON extraction failed.
	ParseMethodFailed ParseMethod = "failed"
)

// Result contains the parsing result and metadata.
type Result[T any] struct {
	Value   T
	Method  ParseMethod
	Warning string
	Raw     string
}

// ExtractJSON attempts to extract and parse JSON from an LLM response.
// It tries multiple strategies in order: direct unmarshal, markdown code
// block extraction, balanced-brace scanning, then lenient recovery.
func ExtractJSON[T any](raw string) (*Result[T], error) {
	var out T
	result := &Result[T]{Raw: raw}

	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		result.Value = out
		result.Method = ParseMethodDirect
		return result, nil
	}

	if snippet := extractFromCodeBlock(raw); snippet != "" {
		if err := json.Unmarshal([]byte(snippet), &out); err == nil {
			result.Value = out
			result.Method = ParseMethodExtracted
			result.Warning = "JSON was extracted from markdown code block"
			return result, nil
		}
	}

	if snippet := findJSONSegment(raw); snippet != "" {
		if err := json.Unmarshal([]byte(snippet), &out); err == nil {
			result.Value = out
			result.Method = ParseMethodExtracted
			result.Warning = "JSON was extracted from surrounding text"
			return result, nil
		}
	}

	if fixed := attemptJSONRecovery(raw); fixed != "" {
		if err := json.Unmarshal([]byte(fixed), &out); err == nil {
			result.Value = out
			result.Method = ParseMethodLenient
			result.Warning = "JSON required error recovery"
			return result, nil
		}
	}

	result.Method = ParseMethodFailed
	return nil, fmt.Errorf("failed to extract JSON from LLM response: no valid JSON found")
}

// extractFromCodeBlock extracts JSON from markdown code blocks.
func extractFromCodeBlock(raw string) string {
	jsonBlockRe := regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")
	matches := jsonBlockRe.FindStringSubmatch(raw)
	if len(matches) >= 2 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// findJSONSegment finds the first complete JSON object or array.
func findJSONSegment(raw string) string {
	start := strings.Index(raw, "{")
	if start == -1 {
		start = strings.Index(raw, "[")
		if start == -1 {
			return ""
		}
	}

	openChar, closeChar := byte('{'), byte('}')
	if raw[start] == '[' {
		openChar, closeChar = '[', ']'
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// attemptJSONRecovery tries to fix common JSON issues: trailing commas,
// single quotes, unquoted keys, and JavaScript-style comments.
func attemptJSONRecovery(raw string) string {
	snippet := findJSONSegment(raw)
	if snippet == "" {
		snippet = raw
	}

	trailingCommaRe := regexp.MustCompile(`,\s*([}\]])`)
	snippet = trailingCommaRe.ReplaceAllString(snippet, "$1")

	if !strings.Contains(snippet, `"`) && strings.Contains(snippet, `'`) {
		snippet = strings.ReplaceAll(snippet, `'`, `"`)
	}

	unquotedKeyRe := regexp.MustCompile(`(?m)^\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
	snippet = unquotedKeyRe.ReplaceAllString(snippet, `"$1":`)

	lineCommentRe := regexp.MustCompile(`(?m)//.*$`)
	snippet = lineCommentRe.ReplaceAllString(snippet, "")
	blockCommentRe := regexp.MustCompile(`/\*.*?\*/`)
	snippet = blockCommentRe.ReplaceAllString(snippet, "")

	return strings.TrimSpace(snippet)
}

// ExtractField extracts a string field from raw JSON-ish text without full
// parsing. Used as a last resort when structured extraction fails.
func ExtractField(raw, field string) (string, bool) {
	pattern := fmt.Sprintf(`"%s"\s*:\s*"([^"]*)"`, regexp.QuoteMeta(field))
	re := regexp.MustCompile(pattern)
	matches := re.FindStringSubmatch(raw)
	if len(matches) >= 2 {
		return matches[1], true
	}
	return "", false
}

// ExtractFloatField extracts a numeric field from raw JSON-ish text.
func ExtractFloatField(raw, field string) (float64, bool) {
	pattern := fmt.Sprintf(`"%s"\s*:\s*(-?\d+\.?\d*)`, regexp.QuoteMeta(field))
	re := regexp.MustCompile(pattern)
	matches := re.FindStringSubmatch(raw)
	if len(matches) >= 2 {
		var val float64
		if _, err := fmt.Sscanf(matches[1], "%f", &val); err == nil {
			return val, true
		}
	}
	return 0, false
}
