package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxNameRunes  = 64
	maxExtLen     = 10
	maxMetaLen    = 256
	fallbackName  = "applicant"
	dateFolderFmt = "02012006"
	timestampFmt  = "20060102150405"
)

// ResumeKey derives the storage key for an applicant's resume:
//
//	{ddmmyyyy}/{Sanitized_Name}_resume_{yyyymmddHHMMSS}_{8 hex}{.ext}
//
// The random suffix keeps keys unique for the same applicant within a second.
func ResumeKey(applicant, filename string, at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s_resume_%s_%s%s",
		at.Format(dateFolderFmt), SanitizeName(applicant), at.Format(timestampFmt), id, Ext(filename))
}

// SanitizeName turns applicant-supplied text into a path-safe key segment.
// Diacritics are folded ("José" becomes "Jose") and every rune outside
// [A-Za-z0-9-] collapses into a single underscore.
func SanitizeName(name string) string {
	folded := foldDiacritics(name)

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if r < utf8.RuneSelf && (isAlnum(byte(r)) || r == '-') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	out := strings.Trim(b.String(), "-_")
	if len(out) > maxNameRunes {
		out = strings.TrimRight(out[:maxNameRunes], "-_")
	}
	if out == "" {
		return fallbackName
	}
	return out
}

// MetadataValue reduces s to printable ASCII so it can travel as object
// metadata.
func MetadataValue(s string) string {
	var b strings.Builder
	for _, r := range foldDiacritics(s) {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > maxMetaLen {
		out = out[:maxMetaLen]
	}
	return out
}

func foldDiacritics(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return folded
}

// Ext returns the lower-cased extension of an uploaded filename including the
// dot, or "" when it is missing or not plain alphanumerics.
func Ext(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(path.Ext(base))
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}
	for i := 1; i < len(ext); i++ {
		if !isAlnum(ext[i]) {
			return ""
		}
	}
	return ext
}

// ValidKey reports whether key is a relative slash-separated path with no
// parent references, empty segments or backslashes.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
