package tracing

import (
	"errors"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"authorization":    {},
	"stripe_signature": {},
	"client_secret":    {},
	"access_token":     {},
	"phone":            {},
	"email":            {},
}

// SafeAttributes drops attributes that could carry credentials or personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

var secretPattern = regexp.MustCompile(`(sk|pk|rk|whsec)_(test|live)_[A-Za-z0-9]+|Bearer [A-Za-z0-9\-._~+/]+=*`)

// SafeError returns err with gateway keys and bearer tokens redacted.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(secretPattern.ReplaceAllString(err.Error(), "[redacted]"))
}
