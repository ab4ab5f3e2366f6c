package triage

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObjectFound is returned when the raw text contains no '{'/'}' pair.
var ErrNoObjectFound = errors.New("no JSON object found in oracle reply")

// SyntaxError reports a candidate object that did not parse. The parser
// message is preserved for diagnostics.
type SyntaxError struct {
	cause error
}

func (e *SyntaxError) Error() string {
	return "oracle reply is not valid JSON: " + e.cause.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.cause
}

// ExtractJSON locates and parses the single JSON object embedded in raw text.
//
// The oracle is instructed to return a bare object, but in practice replies
// arrive wrapped in prose or markdown fences. The candidate document is the
// substring from the first '{' to the last '}' inclusive, parsed strictly.
// No repair of malformed JSON is attempted.
func ExtractJSON(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoObjectFound
	}

	candidate := raw[start : end+1]

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, &SyntaxError{cause: err}
	}
	return obj, nil
}
