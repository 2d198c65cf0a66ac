package astrocloud

import (
	"io/fs"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidObjectPath reports whether p can name an object under a served root.
// p is slash-separated and relative, with no "." or ".." elements and no
// empty elements, backslashes, control characters or whitespace. Tildes are
// permitted since they are unreserved in the canonical URI.
func IsValidObjectPath(p string) bool {
	if p == "." || !utf8.ValidString(p) || !fs.ValidPath(p) {
		return false
	}

	if strings.ContainsRune(p, '\\') {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// ObjectPathFromURL strips the leading slash from a request path.
func ObjectPathFromURL(urlPath string) string {
	return strings.TrimPrefix(urlPath, "/")
}
