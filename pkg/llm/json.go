package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// reasoningBlock matches a leading <think>...</think> block emitted by reasoning models.
var reasoningBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// codeFence matches a markdown fenced block, capturing its body.
var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON returns the first valid JSON object or array in a completion.
// Reasoning blocks and markdown fences around the payload are ignored.
func ExtractJSON(response string) (string, error) {
	body := reasoningBlock.ReplaceAllString(response, "")
	if m := codeFence.FindStringSubmatch(body); len(m) == 2 {
		body = m[1]
	}

	for i := 0; i < len(body); i++ {
		if body[i] != '{' && body[i] != '[' {
			continue
		}
		candidate, ok := balancedSpan(body[i:])
		if ok && json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// balancedSpan returns the prefix of s up to the bracket closing s[0].
// Brackets inside string literals are not counted.
func balancedSpan(s string) (string, bool) {
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// ParseJSONResponse extracts JSON from a completion and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	payload, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}
	return result, nil
}
