package utils

import "strings"

// ToStringSlice converts a decoded JSON claim into a string slice. It accepts
// []any (as produced by encoding/json), []string, or a single space or comma
// separated string.
func ToStringSlice(claim any) []string {
	stringSlice := make([]string, 0)
	switch v := claim.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				stringSlice = append(stringSlice, s)
			}
		}
	case []string:
		for _, s := range v {
			if s != "" {
				stringSlice = append(stringSlice, s)
			}
		}
	case string:
		for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' }) {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// FirstNonEmpty returns the first non-blank value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
