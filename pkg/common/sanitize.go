package common

import "strings"

// forbiddenFilenameChars mirrors the original metadata manager's stripped
// character set: path separators and shell-wildcard-adjacent punctuation.
const forbiddenFilenameChars = "/\\:*?\"<>|"

// SanitizeFilename strips forbidden characters and trims leading/trailing
// space and tab, matching the original implementation's trim set exactly
// (it does not trim newlines or other whitespace).
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(forbiddenFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), " \t")
}
