package resume

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/spigell/cv-screener/internal/candidate"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{8,}\d`)
)

// nameSkipWords mark header lines that are not a person's name.
var nameSkipWords = []string{"resume", "curriculum", "vitae", "cv", "profile", "summary", "contact"}

// ExtractContact finds a name, email and phone in resume text. Missing
// fields are left empty.
func ExtractContact(text string) candidate.Contact {
	var c candidate.Contact

	if m := emailPattern.FindString(text); m != "" {
		c.Email = strings.TrimRight(m, ".")
	}

	for _, m := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range m {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits >= 10 && digits <= 15 {
			c.Phone = strings.TrimSpace(m)
			break
		}
	}

	c.Name = guessName(text)
	return c
}

func guessName(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 10 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || emailPattern.MatchString(line) {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if looksLikeName(words) {
			return strings.Join(words, " ")
		}
	}
	return ""
}

func looksLikeName(words []string) bool {
	for _, w := range words {
		lower := strings.ToLower(w)
		for _, skip := range nameSkipWords {
			if lower == skip {
				return false
			}
		}
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return false
			}
		}
		if first := []rune(w)[0]; !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}
