package masking

import "strings"

const maskToken = "****"

// MaskSecret hides a credential for display. Key prefixes such as "sk_live_"
// and the last four characters stay visible so admins can tell keys apart.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 8 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskFields masks the named keys of an audit metadata map in place and
// returns it.
func MaskFields(metadata map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if value, ok := metadata[key].(string); ok {
			metadata[key] = MaskSecret(value)
		}
	}
	return metadata
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 || lastUnderscore > 12 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
