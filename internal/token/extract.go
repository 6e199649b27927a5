package token

// tokenKeys are checked in order, first at the top level of the payload and
// then inside each container key.
var (
	tokenKeys     = []string{"token", "access_token", "conversation_token"}
	containerKeys = []string{"conversation", "data", "result"}
)

// extractToken finds the first non-empty string token in payload.
func extractToken(payload map[string]any) string {
	if tok := lookupToken(payload); tok != "" {
		return tok
	}
	for _, c := range containerKeys {
		if nested, ok := payload[c].(map[string]any); ok {
			if tok := lookupToken(nested); tok != "" {
				return tok
			}
		}
	}
	return ""
}

func lookupToken(m map[string]any) string {
	for _, k := range tokenKeys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
