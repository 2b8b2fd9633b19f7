package trustedheader

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxHeaderBytes bounds the work done on a single header value.
const maxHeaderBytes = 1024

// maxNameRunes matches the storage limit of the user name columns.
const maxNameRunes = 100

// Sanitize turns an untrusted header value into valid, displayable UTF-8.
// Invalid byte sequences become U+FFFD, the result is NFC-normalized,
// control characters become spaces and surrounding whitespace is trimmed.
// It never fails.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) > maxHeaderBytes {
		raw = raw[:maxHeaderBytes]
	}

	decoded, err := decodeUTF8(raw)
	if err != nil || !utf8.ValidString(decoded) {
		decoded = strings.ToValidUTF8(raw, string(utf8.RuneError))
	}

	normalized := norm.NFC.String(decoded)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, normalized)
	return strings.TrimSpace(cleaned)
}

// decodeUTF8 replaces malformed sequences with U+FFFD and drops a leading BOM.
func decodeUTF8(raw string) (string, error) {
	out, _, err := transform.String(xunicode.UTF8BOM.NewDecoder(), raw)
	return out, err
}

// HeaderValue returns the sanitized value of header name.
func HeaderValue(h http.Header, name string) string {
	return Sanitize(h.Get(name))
}

// ExternalID returns the trimmed external user id with invalid byte
// sequences replaced by U+FFFD. The id is an identity key, so it is never
// normalized or truncated: an id longer than maxHeaderBytes yields "".
func ExternalID(raw string) string {
	id := strings.TrimSpace(strings.ToValidUTF8(raw, string(utf8.RuneError)))
	if len(id) > maxHeaderBytes {
		return ""
	}
	return id
}

// SplitName splits a display name on its first whitespace run into at most
// two parts. Blank input yields two empty strings.
func SplitName(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	i := strings.IndexFunc(raw, unicode.IsSpace)
	if i < 0 {
		return truncateRunes(raw, maxNameRunes), ""
	}
	first := raw[:i]
	last := strings.TrimLeftFunc(raw[i:], unicode.IsSpace)
	return truncateRunes(first, maxNameRunes), truncateRunes(last, maxNameRunes)
}

// PlaceholderEmail derives a deterministic address for an external id.
// Only a digest of the id appears in the address.
func PlaceholderEmail(externalID, domain string) string {
	return "ha-" + Digest(externalID) + "@" + domain
}

// Digest returns the first 24 hex characters of the SHA-256 of externalID.
// Logs use it to correlate an external principal without recording the id.
func Digest(externalID string) string {
	sum := sha256.Sum256([]byte(externalID))
	return hex.EncodeToString(sum[:])[:24]
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
