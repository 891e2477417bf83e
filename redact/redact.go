// Package redact strips credentials from text before it leaves the host.
package redact

import (
	"regexp"
	"strings"
)

// Marker replaces every redacted secret.
const Marker = "[REDACTED]"

var (
	reBearer   = regexp.MustCompile(`(?i)\b(bearer)\s+\S+`)
	reKeyParam = regexp.MustCompile(`([?&](?:key|api_key|access_token)=)[^&\s"']+`)
	reAPIKey   = regexp.MustCompile(`(?i)(x-goog-api-key:\s*)\S+`)
)

// Text removes bearer tokens, credential query parameters and any of the
// given literal secrets from s. Every occurrence is replaced.
func Text(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Marker)
	}
	s = reBearer.ReplaceAllString(s, "${1} "+Marker)
	s = reKeyParam.ReplaceAllString(s, "${1}"+Marker)
	s = reAPIKey.ReplaceAllString(s, "${1}"+Marker)
	return s
}
