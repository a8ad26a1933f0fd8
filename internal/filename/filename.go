// Package filename derives the candidate names offered during the
// interactive filename negotiation.
package filename

import (
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// Set holds the candidates derived once per submission. Exactly one of
// them (or an interactively supplied custom name) becomes the final name.
type Set struct {
	Original string
	Smart    string
	Short    string
}

// Candidates derives the smart and short names from the original filename.
func Candidates(original string) Set {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(original, ext)
	return Set{
		Original: original,
		Smart:    Smart(base) + ext,
		Short:    Short(ext),
	}
}

// Release-name noise extracted in render order: year, resolution, codec.
var tagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}\b`),
	regexp.MustCompile(`(?i)\b(1080p|720p|2160p|4k|480p)\b`),
	regexp.MustCompile(`(?i)\b(x264|x265|h264|h265|avc|hevc)\b`),
}

// Smart normalizes a dotted/underscored release base name into a
// human-cased title with the recognized tags appended in parentheses:
// "My.Movie.2020.1080p.x264" -> "My Movie (2020 1080P X264)".
func Smart(base string) string {
	name := strings.NewReplacer(".", " ", "_", " ").Replace(base)

	var tags []string
	for _, p := range tagPatterns {
		if match := p.FindString(name); match != "" {
			tags = append(tags, titleCase(match))
			name = p.ReplaceAllString(name, "")
		}
	}

	clean := titleCase(strings.Join(strings.Fields(name), " "))
	if len(tags) == 0 {
		return clean
	}
	return clean + " (" + strings.Join(tags, " ") + ")"
}

const shortNameLength = 8

const alphanumerics = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Short returns a randomized fixed-length alphanumeric name keeping the
// original extension.
func Short(ext string) string {
	b := make([]byte, shortNameLength)
	for i := range b {
		b[i] = alphanumerics[rand.Intn(len(alphanumerics))]
	}
	return string(b) + ext
}

// Custom appends the original extension to a user-supplied name unless it
// already carries it.
func Custom(name, original string) string {
	ext := filepath.Ext(original)
	if ext != "" && !strings.HasSuffix(name, ext) {
		return name + ext
	}
	return name
}

// Sanitize replaces characters that are illegal in file names.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}

// titleCase uppercases every letter that starts a run of letters and
// lowercases the rest, leaving digits alone. "x264" -> "X264".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
