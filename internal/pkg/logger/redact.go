package logger

import "strings"

// RedactEmail masks an email-like identity for safe logging.
// "john.doe@rprocess.in" → "jo***@rprocess.in"
// Short local parts (≤2 chars) are fully masked: "ab@rprocess.in" → "***@rprocess.in"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
