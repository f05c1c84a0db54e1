package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseToolArgs turns command-line tokens into tool arguments. Accepted forms
// are "--key value", "--key=value" and "key:value". Each value is decoded as
// JSON when it parses, otherwise it is kept as a literal string.
func ParseToolArgs(tokens []string) (map[string]interface{}, error) {
	args := make(map[string]interface{})

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		switch {
		case strings.HasPrefix(token, "--"):
			key := strings.TrimPrefix(token, "--")
			if k, v, ok := strings.Cut(key, "="); ok {
				if k == "" {
					return nil, fmt.Errorf("invalid argument %q: empty key", token)
				}
				args[k] = parseValue(v)
				continue
			}
			if key == "" {
				return nil, fmt.Errorf("invalid argument %q: empty key", token)
			}
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for --%s", key)
			}
			i++
			args[key] = parseValue(tokens[i])

		case strings.Contains(token, ":"):
			k, v, _ := strings.Cut(token, ":")
			if k == "" {
				return nil, fmt.Errorf("invalid argument %q: empty key", token)
			}
			args[k] = parseValue(v)

		default:
			return nil, fmt.Errorf("invalid argument %q: expected --key value, --key=value or key:value", token)
		}
	}

	return args, nil
}

func parseValue(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
