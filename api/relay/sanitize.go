package relay

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
)

// MaxFileNameLength bounds sanitized upload names
const MaxFileNameLength = 255

var disallowedFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeFileName replaces every character outside [a-zA-Z0-9_.-] with an underscore
// and truncates the result to MaxFileNameLength.
func SanitizeFileName(name string) string {
	s := disallowedFileNameChars.ReplaceAllString(name, "_")
	if len(s) > MaxFileNameLength {
		s = s[:MaxFileNameLength]
	}
	return s
}

// NormalizeURL turns Windows-style separators into slashes
func NormalizeURL(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
}

// EncodeURL percent-encodes every byte except letters, digits, "_.-~" and ":/"
func EncodeURL(u string) string {
	var b strings.Builder
	b.Grow(len(u))
	for i := 0; i < len(u); i++ {
		c := u[i]
		if isURLSafe(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isURLSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '~', ':', '/':
		return true
	}
	return false
}

// uploadName picks the name of the uploaded file: the last segment of the URL path,
// or the display name when the URL ends with a slash
func uploadName(normalizedURL, displayName string) string {
	name := normalizedURL
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = displayName
	}
	if name == "" {
		name = "file"
	}
	return name
}

// MatchContentType reports whether the Content-Type header names the expected media type.
// An empty expected type accepts anything.
func MatchContentType(header, expected string) bool {
	if expected == "" {
		return true
	}
	expected = strings.ToLower(expected)
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.Contains(strings.ToLower(header), expected)
	}
	return mediaType == expected
}
