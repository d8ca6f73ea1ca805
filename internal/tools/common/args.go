package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/inboxtriage/internal/preferences"
)

// ParseStringOrArray parses a parameter that can be either a single string,
// a comma separated string or an array of strings. A missing parameter
// yields nil without error.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, nil
	}

	var result []string

	switch v := param.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	case []interface{}:
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str = strings.TrimSpace(str); str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	case []string:
		result = v
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// ParseRanking reads a topic to rank mapping. The parameter may be an
// object or a JSON encoded object.
func ParseRanking(param interface{}, paramName string) (preferences.Ranking, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var raw []byte
	switch v := param.(type) {
	case string:
		raw = []byte(v)
	case map[string]interface{}:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("%s: %w", paramName, err)
		}
	default:
		return nil, fmt.Errorf("%s must be an object mapping topics to ranks", paramName)
	}

	var ranking preferences.Ranking
	if err := json.Unmarshal(raw, &ranking); err != nil {
		return nil, fmt.Errorf("%s must map topics to integer ranks: %w", paramName, err)
	}
	return ranking, nil
}

// FormatJSON renders v for a text tool result.
func FormatJSON(v interface{}) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
