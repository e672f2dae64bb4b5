package service

import (
	"encoding/json"
	"strings"

	"github.com/zlin640/finpost/backend/internal/journal/domain"
	"github.com/zlin640/finpost/backend/internal/journal/expr"
)

// deriveFlags computes the active flag codes of a transaction. Two
// sources are merged: explicit flag-bearing columns on the raw row, and
// canonical fields whose code carries the FLAG_ prefix and whose value is
// truthy.
func deriveFlags(row map[string]any, fields map[string]any) map[string]bool {
	flags := make(map[string]bool)

	for _, col := range domain.FlagColumnAliases {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		for _, f := range parseFlagValue(v) {
			flags[f] = true
		}
	}

	for code, v := range fields {
		if len(code) >= len(domain.FlagFieldPrefix) &&
			strings.EqualFold(code[:len(domain.FlagFieldPrefix)], domain.FlagFieldPrefix) &&
			expr.Truthy(v) {
			flags[code] = true
		}
	}

	return flags
}

// parseFlagValue accepts a JSON array of codes, a JSON object whose
// truthy values name flags by key, or a comma/semicolon/pipe-delimited
// string.
func parseFlagValue(v any) []string {
	var raw string
	switch x := v.(type) {
	case string:
		raw = x
	case []byte:
		raw = string(x)
	default:
		return nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			var out []string
			for _, item := range arr {
				if f := strings.TrimSpace(expr.Text(item)); f != "" {
					out = append(out, f)
				}
			}
			return out
		}
	}
	if strings.HasPrefix(raw, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			var out []string
			for key, val := range obj {
				if expr.Truthy(val) {
					out = append(out, strings.TrimSpace(key))
				}
			}
			return out
		}
	}

	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	var out []string
	for _, f := range split {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
