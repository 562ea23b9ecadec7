package util

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	fallbackFilename  = "download"
	maxFilenameLength = 200
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

var windowsReservedNames = map[string]struct{}{
	"CON":  {},
	"PRN":  {},
	"AUX":  {},
	"NUL":  {},
	"COM1": {},
	"COM2": {},
	"COM3": {},
	"COM4": {},
	"COM5": {},
	"COM6": {},
	"COM7": {},
	"COM8": {},
	"COM9": {},
	"LPT1": {},
	"LPT2": {},
	"LPT3": {},
	"LPT4": {},
	"LPT5": {},
	"LPT6": {},
	"LPT7": {},
	"LPT8": {},
	"LPT9": {},
}

// SanitizeFilename turns a pack title into a name that is safe to offer in a
// download dialog. It never fails; titles with nothing usable left become
// "download".
func SanitizeFilename(name string) string {
	builder := strings.Builder{}
	builder.Grow(len(name))

	for _, char := range strings.TrimSpace(name) {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}

		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(builder.String(), "_"))
	cleaned = strings.TrimLeft(cleaned, ".")

	// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
	runes := []rune(cleaned)
	if len(runes) > maxFilenameLength {
		runes = runes[:maxFilenameLength]
	}
	cleaned = strings.TrimSpace(string(runes))

	if cleaned == "" {
		return fallbackFilename
	}

	stem := cleaned
	if idx := strings.Index(cleaned, "."); idx >= 0 {
		stem = cleaned[:idx]
	}

	if _, exists := windowsReservedNames[strings.ToUpper(stem)]; exists {
		return "_" + cleaned
	}

	return cleaned
}

// ContentDisposition builds an attachment header for title. Non-ASCII titles
// get an ASCII filename plus an RFC 5987 filename* carrying the real name.
func ContentDisposition(title string) string {
	name := SanitizeFilename(title)

	ascii, isASCII := asciiFallback(name)
	header := `attachment; filename="` + ascii + `"`
	if isASCII {
		return header
	}

	return header + "; filename*=UTF-8''" + encodeExtValue(name)
}

func asciiFallback(name string) (string, bool) {
	builder := strings.Builder{}
	isASCII := true

	for _, char := range name {
		if char > unicode.MaxASCII {
			isASCII = false
			builder.WriteByte('_')
			continue
		}
		builder.WriteRune(char)
	}

	return builder.String(), isASCII
}

// encodeExtValue percent-encodes everything outside RFC 5987 attr-char.
func encodeExtValue(value string) string {
	const hex = "0123456789ABCDEF"

	builder := strings.Builder{}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isAttrChar(c) {
			builder.WriteByte(c)
			continue
		}
		builder.WriteByte('%')
		builder.WriteByte(hex[c>>4])
		builder.WriteByte(hex[c&0x0f])
	}

	return builder.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}

	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters that should be stripped from filenames.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF', // Zero-Width No-Break Space / BOM
		'\uFFF9', // Interlinear Annotation Anchor
		'\uFFFA', // Interlinear Annotation Separator
		'\uFFFB': // Interlinear Annotation Terminator
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
