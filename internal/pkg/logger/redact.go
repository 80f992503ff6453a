package logger

import "strings"

// emailKeys are log field names whose values are treated as recipient
// addresses and masked.
var emailKeys = map[string]bool{
	"email":     true,
	"recipient": true,
	"to":        true,
	"admin":     true,
}

func redactValue(key, val string) string {
	if emailKeys[strings.ToLower(key)] {
		return RedactEmail(val)
	}
	return val
}

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
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
