package calculator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseAnswers extracts results from a model reply. The reply may be wrapped
// in a Markdown code fence or surrounded by prose, and may use either JSON or
// Python literal syntax ('single quotes', True/False). A missing "assign" key
// means false.
func ParseAnswers(reply string) ([]Result, error) {
	body := extractList(stripFence(reply))
	if body == "" {
		return nil, fmt.Errorf("%w: no list found", ErrUnparseableAnswer)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		// yaml.v3 accepts JSON as well as the single-quoted, True/False flavour.
		if yamlErr := yaml.Unmarshal([]byte(body), &items); yamlErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableAnswer, yamlErr)
		}
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		expr := stringify(item["expr"])
		if expr == "" {
			continue
		}
		results = append(results, Result{
			Expr:   expr,
			Result: stringify(item["result"]),
			Assign: truthy(item["assign"]),
		})
	}
	return results, nil
}

func stripFence(reply string) string {
	s := strings.TrimSpace(reply)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	s = s[start+3:]
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// extractList returns the first balanced [...] span that opens a list of
// objects (or an empty list), or wraps a lone {...} object. Brackets inside
// quoted strings are ignored.
func extractList(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		next := strings.TrimLeft(s[i+1:], " \t\r\n")
		if next == "" || (next[0] != '{' && next[0] != ']') {
			continue
		}
		if end := matchingBracket(s, i); end > 0 {
			return s[i : end+1]
		}
	}
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		return "[" + s[start:end+1] + "]"
	}
	return ""
}

// matchingBracket returns the index of the ']' closing s[open], or -1.
func matchingBracket(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		value = strings.TrimSpace(value)
		if value == "None" || value == "null" {
			return ""
		}
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case uint64:
		return strconv.FormatUint(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}

func truthy(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		return err == nil && b
	default:
		return false
	}
}
