package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalNames converts a name list to JSON TEXT for storage. A nil list is
// stored as [] so that reads never see null.
func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // expressions and args keep < > & verbatim
	if err := enc.Encode(names); err != nil {
		return "", fmt.Errorf("marshal names: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalNames parses JSON TEXT written by marshalNames.
func unmarshalNames(data string) ([]string, error) {
	names := []string{}
	if data == "" {
		return names, nil
	}
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	return names, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
