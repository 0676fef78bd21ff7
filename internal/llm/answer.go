package llm

import (
	"encoding/json"
	"strings"
)

// Answer is the JSON object returned for one prompt. An empty Answer means "no answer".
type Answer map[string]any

// Empty reports whether the answer carries nothing usable
func (a Answer) Empty() bool {
	return len(a) == 0
}

// Bool reads a boolean field. ok is false when the field is missing or not boolean-like.
func (a Answer) Bool(key string) (value bool, ok bool) {
	switch v := a[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

// String reads a string field; null and non-strings read as ""
func (a Answer) String(key string) string {
	if v, ok := a[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Strings reads a list of strings, skipping non-string and blank items.
// A single string is read as a one-item list.
func (a Answer) Strings(key string) []string {
	return toStrings(a[key])
}

// StringLists reads every field holding a string list, except the excluded keys
func (a Answer) StringLists(exclude ...string) map[string][]string {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	out := make(map[string][]string)
	for k, v := range a {
		if skip[k] {
			continue
		}
		if items := toStrings(v); items != nil {
			out[k] = items
		}
	}
	return out
}

func toStrings(v any) []string {
	switch items := v.(type) {
	case string:
		if s := strings.TrimSpace(items); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return items
	}
	return nil
}

// ParseAnswer extracts the first JSON object from model output.
// Code fences and surrounding prose are tolerated; anything else yields an empty Answer.
func ParseAnswer(text string) Answer {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Answer{}
	}

	var answer Answer
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return Answer{}
	}
	if answer == nil {
		return Answer{}
	}
	return answer
}
