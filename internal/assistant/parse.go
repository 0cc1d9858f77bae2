package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSONObject is returned when the model output has no brace-delimited object.
	ErrNoJSONObject = errors.New("no JSON object in model output")
	// ErrNoCredential is returned by ModelStrategy when no provider is configured.
	ErrNoCredential = errors.New("no language model configured")
)

// extractObject returns the text between the first '{' and the last '}'.
func extractObject(text string) (string, error) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last <= first {
		return "", ErrNoJSONObject
	}
	return text[first : last+1], nil
}

// ParseModelOutput validates a model response against the action vocabulary.
// Unrecognised actions become ActionUnknown and malformed deleteParams are
// dropped; anything that cannot be decoded is an error so callers can fall
// back instead of using a partial result.
func ParseModelOutput(text string) (Interpretation, error) {
	obj, err := extractObject(text)
	if err != nil {
		return Interpretation{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Interpretation{}, fmt.Errorf("decode model output: %w", err)
	}

	out := Interpretation{Action: ActionUnknown, Source: SourceModel}
	if rawAction, ok := raw["action"]; ok {
		var s string
		if json.Unmarshal(rawAction, &s) == nil {
			if a, ok := ParseAction(s); ok {
				out.Action = a
			}
		}
	}

	if rawParams, ok := raw["deleteParams"]; ok {
		out.DeleteParams = parseDeleteParams(rawParams)
	}

	// deleteParams only travel with delete_email
	if out.Action != ActionDeleteEmail {
		out.DeleteParams = nil
	}
	return out, nil
}

func parseDeleteParams(data json.RawMessage) *DeleteCriterion {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil
	}

	var keyword, field string
	if json.Unmarshal(obj["keyword"], &keyword) != nil {
		return nil
	}
	if json.Unmarshal(obj["field"], &field) != nil {
		return nil
	}

	c := DeleteCriterion{Keyword: strings.TrimSpace(keyword), Field: Field(field)}
	if !c.Valid() {
		return nil
	}
	return &c
}
