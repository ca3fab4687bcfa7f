package security

// IsSpam reports whether a honeypot field was filled in. Any value,
// including whitespace, counts: humans never see the field.
func IsSpam(honeypot string) bool { return honeypot != "" }
