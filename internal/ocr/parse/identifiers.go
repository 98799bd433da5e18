package parse

import (
	"regexp"
)

var (
	// RFC: 3 letters (legal entity) or 4 (natural person), birth or
	// incorporation date, 3-character homoclave.
	rfcPattern = regexp.MustCompile(`(?i)[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}`)
	// CURP: 4 letters, birth date, sex, 5 letters, 2 check characters.
	curpPattern = regexp.MustCompile(`(?i)[A-Z]{4}\d{6}[HM][A-Z]{5}\d{2}`)
)

// Identifiers are the national codes recovered from a transcript.
type Identifiers struct {
	RFC  string
	CURP string
}

// ParseIdentifiers finds the first RFC-shaped and CURP-shaped tokens in text.
// A CURP begins with an RFC-shaped run, so CURP matches are blanked out
// before the RFC search.
func ParseIdentifiers(text string) Identifiers {
	curp := curpPattern.FindString(text)
	rest := curpPattern.ReplaceAllString(text, " ")
	return Identifiers{
		RFC:  rfcPattern.FindString(rest),
		CURP: curp,
	}
}
