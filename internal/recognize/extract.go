package recognize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Encounter banners render one line per opposing creature in the form
// "NAME Lv.12". Lines without the level marker are UI noise.
const levelMarker = "lv."

// OCR artifacts that must never survive as creature names.
var bannedTokens = []string{"lv.", "llv.", "alpha"}

var digitOrSpace = regexp.MustCompile(`[0-9\s]`)

// minNameLength drops one- and two-letter OCR fragments.
const minNameLength = 4

// ExtractLabel reduces raw OCR text to an encounter label. Creature names
// are taken from level-marker lines, normalized to lowercase, and joined
// with "+" so a multi-creature encounter yields one distinct label.
// Returns "" when the text holds no encounter evidence.
func ExtractLabel(text string) string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), levelMarker) {
			continue
		}
		for _, word := range strings.Fields(line) {
			r, _ := utf8.DecodeRuneInString(word)
			if !unicode.IsUpper(r) {
				continue
			}
			name := strings.ReplaceAll(strings.ToLower(word), "llv.", "")
			if !validName(name) {
				continue
			}
			names = append(names, name)
		}
	}
	return strings.Join(names, "+")
}

func validName(name string) bool {
	if len(name) < minNameLength {
		return false
	}
	if digitOrSpace.MatchString(name) {
		return false
	}
	for _, banned := range bannedTokens {
		if strings.Contains(name, banned) {
			return false
		}
	}
	return true
}
