package cliparse

import "regexp"

var ansiColorRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSIColor removes SGR color escapes from CLI output. Some devices
// wrap interface names in color codes (e.g. a red "[91m...[0m" to flag
// link-down) that must be stripped before field-splitting.
func StripANSIColor(s string) string {
	return ansiColorRe.ReplaceAllString(s, "")
}
