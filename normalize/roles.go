package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RoleTable maps lowercased raw roles to display labels. It is immutable
// after construction and safe to share across workers.
type RoleTable struct {
	labels map[string]string
}

// NewRoleTable builds the default table: user and assistant messages take the
// given display names, the service roles keep fixed labels, and messages with
// no recognizable role at all are labeled "Message". Overrides are applied
// last, keyed case-insensitively, and may replace any default.
func NewRoleTable(userLabel, assistantLabel string, overrides map[string]string) RoleTable {
	if userLabel == "" {
		userLabel = "User"
	}
	if assistantLabel == "" {
		assistantLabel = "Assistant"
	}
	labels := map[string]string{
		"user":      userLabel,
		"assistant": assistantLabel,
		"system":    "System",
		"tool":      "Tool",
		"developer": "Developer",
		"function":  "Function",
		"unknown":   "Message",
	}
	for k, v := range overrides {
		labels[strings.ToLower(k)] = v
	}
	return RoleTable{labels: labels}
}

// Label resolves a raw role string to its display label. Roles outside the
// table degrade to a capitalized copy of themselves so new upstream roles
// still read sensibly.
func (t RoleTable) Label(raw string) string {
	role := strings.ToLower(strings.TrimSpace(raw))
	if role == "" {
		role = "unknown"
	}
	if label, ok := t.labels[role]; ok {
		return label
	}
	return capitalize(role)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
