// Package identity resolves player names and team abbreviations across the
// upstream record sets, which come from sources with inconsistent encodings
// and naming conventions.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nicknameMap = map[string]string{
	"ronald": "ron", "william": "will", "robert": "rob",
	"kenneth": "ken", "nicholas": "nick", "christopher": "chris",
	"timothy": "tim", "matthew": "matt", "daniel": "dan",
	"michael": "mike", "joseph": "joe", "edward": "ed",
	"anthony": "tony", "richard": "rich", "thomas": "tom",
	"benjamin": "ben", "gregory": "greg", "gerald": "gerry",
	"patrick": "pat", "jeffrey": "jeff", "cameron": "cam",
}

var cyrillicMap = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

var generationalSuffixes = []string{" iv", " iii", " ii", " jr", " sr", " v"}

// Key produces an ASCII merge key for a player name: diacritics stripped,
// Cyrillic transliterated, generational suffixes dropped, common first-name
// nicknames collapsed. Idempotent: Key(Key(s)) == Key(s).
func Key(name string) string {
	if name == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		lower := unicode.ToLower(r)
		if s, ok := cyrillicMap[lower]; ok {
			b.WriteString(s)
			continue
		}
		b.WriteRune(r)
	}

	decomposed := norm.NFKD.String(b.String())
	var ascii strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark from a decomposed diacritic
		}
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			ascii.WriteRune(unicode.ToLower(r))
		}
	}

	key := strings.Join(strings.Fields(ascii.String()), " ")

	for _, suffix := range generationalSuffixes {
		if strings.HasSuffix(key, suffix) {
			key = strings.TrimSpace(strings.TrimSuffix(key, suffix))
			break
		}
	}

	first, rest, found := strings.Cut(key, " ")
	if found {
		if nick, ok := nicknameMap[first]; ok {
			key = nick + " " + rest
		}
	}

	return key
}

// Canonical team abbreviations follow the FanDuel convention; game log and
// stat sources use NBA.com variants for a handful of teams.
var teamAbbrMap = map[string]string{
	"GSW": "GS", "NYK": "NY", "PHX": "PHO", "NOP": "NO", "SAS": "SA",
	"GS": "GS", "NY": "NY", "PHO": "PHO", "NO": "NO", "SA": "SA",
	"BRK": "BKN", "BKN": "BKN", "BK": "BKN",
}

// Team normalizes a team abbreviation to its canonical form. Unknown
// abbreviations pass through unchanged.
func Team(team string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(team))
	if canonical, ok := teamAbbrMap[trimmed]; ok {
		return canonical
	}
	return trimmed
}
