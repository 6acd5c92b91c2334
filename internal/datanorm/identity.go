package datanorm

import "strings"

// DefaultIdentityDomain is appended to bare annotator/user names so the same
// person matches across sheets that record either a bare name or a full
// address. Configurable per deployment.
const DefaultIdentityDomain = "rprocess.in"

// CanonicalIdentity cleans a raw annotator/user cell and canonicalizes it to
// an email-like form: trim, reject empty/"undefined"/"nil", strip any
// existing domain, append the configured one. An empty domain disables the
// suffix and yields the bare name. Returns "" for invalid identities.
func CanonicalIdentity(v any, domain string) string {
	val := strings.TrimSpace(String(v))
	lower := strings.ToLower(val)
	if val == "" || lower == "undefined" || lower == "nil" {
		return ""
	}

	name := val
	if at := strings.Index(val, "@"); at >= 0 {
		name = val[:at]
	}
	if domain == "" {
		return name
	}
	return name + "@" + domain
}

// BareName strips the identity domain back off for presentation.
func BareName(identity string) string {
	if at := strings.Index(identity, "@"); at >= 0 {
		return identity[:at]
	}
	return identity
}
