package cmd

import "strings"

// parseVars converts ["name=value", ...] overrides to a map.
func parseVars(raw []string) map[string]any {
	m := map[string]any{}
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			m[parts[0]] = parts[1]
		}
	}
	return m
}
