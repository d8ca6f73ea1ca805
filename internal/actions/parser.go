package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
)

// ExtractJSONArray returns the substring of raw from the first '[' to the
// last ']' inclusive. Models tend to wrap their answer in prose or code
// fences; everything outside the brackets is discarded.
func ExtractJSONArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	switch {
	case start < 0:
		return "", &ParseError{Stage: StageExtract, Reason: "no opening bracket in model reply"}
	case end < 0:
		return "", &ParseError{Stage: StageExtract, Reason: "no closing bracket in model reply"}
	case end < start:
		return "", &ParseError{Stage: StageExtract, Reason: "closing bracket precedes opening bracket"}
	}
	return raw[start : end+1], nil
}

// decodeArray extracts the array from raw and splits it into raw elements.
func decodeArray(raw string) ([]json.RawMessage, error) {
	payload, err := ExtractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	// Strip comments and trailing commas copied from the schema example.
	clean := jsonc.ToJSON([]byte(payload))

	var items []json.RawMessage
	if err := json.Unmarshal(clean, &items); err != nil {
		return nil, &ParseError{Stage: StageDecode, Reason: "model reply is not a JSON array", Err: err}
	}
	return items, nil
}

// rawAction mirrors ClassifiedAction with a string action_type so that an
// unknown destination can be reported instead of silently accepted.
type rawAction struct {
	EmailID    string  `json:"email_id"`
	Importance string  `json:"importance"`
	Subject    string  `json:"subject"`
	ActionType string  `json:"action_type"`
	Details    Details `json:"action_details"`
}

// ParseClassification turns a classification reply into a Batch. Elements
// are decoded one at a time: a malformed element is recorded in
// Batch.Skipped and the remaining elements are kept. Only failures that
// affect the whole payload return an error, always a *ParseError.
func ParseClassification(raw string) (*Batch, error) {
	items, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Actions: make([]ClassifiedAction, 0, len(items))}
	for i, item := range items {
		action, skip := decodeAction(i, item)
		if skip != nil {
			batch.Skipped = append(batch.Skipped, *skip)
			continue
		}
		batch.Actions = append(batch.Actions, action)
	}
	return batch, nil
}

func decodeAction(index int, item json.RawMessage) (ClassifiedAction, *PartialItemError) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ClassifiedAction{}, &PartialItemError{Index: index, Reason: "element is not an object"}
	}

	var r rawAction
	if err := json.Unmarshal(trimmed, &r); err != nil {
		// Salvage the id for the report when possible.
		var probe struct {
			EmailID string `json:"email_id"`
		}
		_ = json.Unmarshal(trimmed, &probe)
		return ClassifiedAction{}, &PartialItemError{
			Index:   index,
			EmailID: probe.EmailID,
			Reason:  fmt.Sprintf("cannot decode element: %v", err),
		}
	}

	t, ok := ParseType(r.ActionType)
	if !ok {
		return ClassifiedAction{}, &PartialItemError{
			Index:   index,
			EmailID: r.EmailID,
			Reason:  fmt.Sprintf("unknown action_type %q", r.ActionType),
		}
	}

	return ClassifiedAction{
		EmailID:    r.EmailID,
		Importance: NormalizeImportance(r.Importance),
		Subject:    r.Subject,
		ActionType: t,
		Details:    r.Details,
	}, nil
}

// ParseSuggestions turns a suggestion reply into a list of topic labels.
// Entries are trimmed; empty entries and repeats are dropped, keeping the
// first occurrence. The number of entries is not enforced here.
func ParseSuggestions(raw string) ([]string, error) {
	items, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, &ParseError{
				Stage:  StageDecode,
				Reason: fmt.Sprintf("element %d is not a string", i),
				Err:    err,
			}
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		topics = append(topics, s)
	}
	return topics, nil
}
