package report

import "strings"

// CanonicalField is a normalized field name used across the pipeline.
type CanonicalField string

const (
	FieldIdentity  CanonicalField = "identity"
	FieldEmail     CanonicalField = "email"
	FieldCreatedAt CanonicalField = "created_at"
	FieldStatus    CanonicalField = "subscription_status"
	FieldCheckIns  CanonicalField = "check_ins"
)

// CheckInsHeader is the single column name the assembled output carries for
// check-in counts, regardless of how the source spelled it.
const CheckInsHeader = "Check Ins"

// DeductionHeader is the computed amount column appended to the output.
const DeductionHeader = "Amount to be Deducted"

// columnAliases maps folded header names to canonical fields. Portal exports
// are inconsistent about casing and spacing, so every spelling observed in
// the wild maps here.
var columnAliases = map[string]CanonicalField{
	// Identity
	"username": FieldIdentity,
	"name":     FieldIdentity,

	// Creation timestamp
	"created at": FieldCreatedAt,
	"created":    FieldCreatedAt,

	// Subscription status
	"subscription status": FieldStatus,
	"status":              FieldStatus,

	// Check-in count
	"check ins": FieldCheckIns,
	"checkins":  FieldCheckIns,
}

// foldHeader normalizes a raw header name for alias lookup.
func foldHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.Trim(h, "\"'")
	return strings.ToLower(h)
}

// CanonicalFor resolves a raw header name to its canonical field.
// Any header containing "email" resolves to FieldEmail, matching the portal's
// free-form email column naming. Returns "" when the header is passthrough.
func CanonicalFor(header string) CanonicalField {
	folded := foldHeader(header)
	if f, ok := columnAliases[folded]; ok {
		return f
	}
	if strings.Contains(folded, "email") {
		return FieldEmail
	}
	return ""
}

// IsCheckInsHeader reports whether a raw header is one of the check-in
// synonym spellings.
func IsCheckInsHeader(header string) bool {
	return columnAliases[foldHeader(header)] == FieldCheckIns
}

// DefaultExcludedHeaders are columns stripped from every assembled artifact:
// sensitive data, the raw creation timestamp, and portal UI action columns.
var DefaultExcludedHeaders = []string{
	"User Image",
	"Phone",
	"Password",
	"Created At",
	"Edit",
	"Send Email",
}
