package store

import "encoding/json"

// marshalStrings serializes a string slice to JSON for storage in a TEXT
// column; nil/empty slices are stored as an empty string.
func marshalStrings(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return ""
	}
	return string(data)
}

// unmarshalStrings is the inverse of marshalStrings.
func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(s), &vals); err != nil {
		return nil
	}
	return vals
}
