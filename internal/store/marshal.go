package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalJSON converts v to JSON TEXT for storage.
// HTML escaping is disabled so stored text matches what the CLI prints.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalEnvironment(env Environment) (string, error) {
	data, err := marshalJSON(env)
	if err != nil {
		return "", fmt.Errorf("marshal environment: %w", err)
	}
	return data, nil
}

func unmarshalEnvironment(data string) (Environment, error) {
	var env Environment
	if data == "" || data == "{}" {
		return env, nil
	}
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return Environment{}, fmt.Errorf("unmarshal environment: %w", err)
	}
	return env, nil
}
