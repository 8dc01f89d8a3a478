// Package leads finds contact details in chat messages and validates
// contact-form submissions.
package leads

import "regexp"

// PhonePattern is the regional mobile-number rule: ten digits, the first
// one of 6, 7, 8 or 9.
const PhonePattern = `^[6-9][0-9]{9}$`

var (
	phoneExact = regexp.MustCompile(PhonePattern)
	// The surrounding non-digit guards keep 11+ digit runs from matching.
	phoneInText = regexp.MustCompile(`(?:^|[^0-9])([6-9][0-9]{9})(?:[^0-9]|$)`)
)

// Match is a piece of contact information found in free text.
type Match struct {
	Kind  string
	Value string
}

// Extractor finds at most one match in a message.
type Extractor interface {
	Extract(text string) (Match, bool)
}

// Match kinds a lead can be built from.
const (
	KindPhone = "phone"
	KindEmail = "email"
)

// PhoneExtractor finds the first mobile number in a message.
type PhoneExtractor struct{}

func (PhoneExtractor) Extract(text string) (Match, bool) {
	m := phoneInText.FindStringSubmatch(text)
	if m == nil {
		return Match{}, false
	}
	return Match{Kind: KindPhone, Value: m[1]}, true
}

// IsValidPhone reports whether s is exactly one mobile number. Matches from
// any extractor are checked with it before they become a lead.
func IsValidPhone(s string) bool {
	return phoneExact.MatchString(s)
}
