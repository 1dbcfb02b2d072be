// Package extract recovers structured JSON from free-form model output.
// Local models wrap JSON in prose, markdown fences, or both; the extractor
// tries progressively more forgiving strategies before giving up.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedModelOutput is returned when every extraction strategy fails.
// Callers surface it to the user instead of coercing a default object.
var ErrMalformedModelOutput = errors.New("model output is not a JSON object")

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// JSONObject extracts a single JSON object from text. Strategies, in order,
// returning on the first success:
//
//  1. Parse the whole text.
//  2. Parse the inner content of a fenced code block (```json ... ```).
//  3. Parse the substring from the first '{' to the last '}'.
//
// A well-behaved model hits (1); a chatty one hits (2) or (3); anything
// else fails with ErrMalformedModelOutput.
func JSONObject(text string) (map[string]any, error) {
	if obj, err := parseObject(text); err == nil {
		return obj, nil
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if obj, err := parseObject(strings.TrimSpace(m[1])); err == nil {
			return obj, nil
		}
	}

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		if obj, err := parseObject(text[first : last+1]); err == nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w: no strategy yielded valid JSON", ErrMalformedModelOutput)
}

func parseObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("json value is not an object")
	}
	return obj, nil
}
