package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTagLen bounds tag names in runes.
const MaxTagLen = 64

// Tag normalises and checks a tag name. Surrounding whitespace is trimmed;
// empty names, control characters and names longer than MaxTagLen are
// rejected.
func Tag(t string) (string, error) {
	t = strings.TrimSpace(t)
	if t == "" {
		return "", fmt.Errorf("%w: empty tag", ErrInvalidTag)
	}
	if utf8.RuneCountInString(t) > MaxTagLen {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidTag, MaxTagLen)
	}
	for _, r := range t {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("%w: control character in %q", ErrInvalidTag, t)
		}
	}
	return t, nil
}

// Tags normalises a set of tags, dropping duplicates while keeping order.
func Tags(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		n, err := Tag(t)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
