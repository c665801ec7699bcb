package score

import "regexp"

var (
	emailRE = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`[\+]?[1-9]?[0-9]{7,14}`)
)

// Emails returns the distinct email-shaped substrings of text in order of appearance.
func Emails(text string) []string {
	return uniqueMatches(emailRE, text)
}

// Phones returns the distinct phone-shaped numeric substrings of text in order of appearance.
func Phones(text string) []string {
	return uniqueMatches(phoneRE, text)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, m := range re.FindAllString(text, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
