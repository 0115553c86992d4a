package model

import "regexp"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

// ValidUsername reports whether name can safely key per-identity records
// (file names, cache keys, table rows).
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}
