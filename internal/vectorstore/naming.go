package vectorstore

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// CollectionName derives the collection name for an indexed document:
// the filename stem, the embedding provider, and a second-resolution
// timestamp, sanitized into a legal identifier.
func CollectionName(filename, provider string, now time.Time) string {
	stem := filename
	if i := strings.LastIndexByte(stem, '/'); i >= 0 {
		stem = stem[i+1:]
	}
	if i := strings.LastIndexByte(stem, '.'); i > 0 {
		stem = stem[:i]
	}
	if stem == "" {
		stem = "doc"
	}
	return Sanitize(fmt.Sprintf("%s_%s_%s", stem, provider, now.Format("20060102150405")))
}

// Sanitize converts an arbitrary name into a legal collection
// identifier: lowercase ASCII letters, digits, and underscores, starting
// with a letter, at most 255 characters. Han characters are
// transliterated to pinyin so distinct non-Latin filenames keep distinct
// stems. The mapping is deterministic and idempotent, so sanitizing an
// already-sanitized name is a no-op.
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = transliterate(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	cleaned := collapseUnderscores(b.String())
	cleaned = strings.Trim(cleaned, "_")

	if cleaned == "" || isASCIIDigit(cleaned[0]) {
		cleaned = "col_" + cleaned
		cleaned = strings.TrimRight(cleaned, "_")
	}

	if len(cleaned) > 255 {
		prefix := strings.TrimRight(cleaned[:200], "_")
		suffix := fmt.Sprintf("%x", md5.Sum([]byte(cleaned)))[:8]
		cleaned = prefix + "_" + suffix
	}

	return strings.ToLower(cleaned)
}

// transliterate converts Han characters to pinyin syllables, each
// joined to its neighbors with an underscore. Names without Han
// characters pass through untouched.
func transliterate(name string) string {
	hasHan := strings.ContainsFunc(name, func(r rune) bool { return unicode.Is(unicode.Han, r) })
	if !hasHan {
		return name
	}

	args := pinyin.NewArgs()
	var parts []string
	var buf strings.Builder
	for _, r := range name {
		if py := pinyin.SinglePinyin(r, args); len(py) > 0 {
			if buf.Len() > 0 {
				parts = append(parts, buf.String())
				buf.Reset()
			}
			parts = append(parts, py[0])
			continue
		}
		buf.WriteRune(r)
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return strings.Join(parts, "_")
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := false
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
