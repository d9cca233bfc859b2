package attachment

import (
	"strings"
	"unicode"
)

// SanitizeFilename keeps the base name and drops control and non printable runes.
func SanitizeFilename(name *string) *string {
	if name == nil {
		return nil
	}
	base := strings.ReplaceAll(*name, "\\", "/")
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, base)
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		return nil
	}
	return &base
}
