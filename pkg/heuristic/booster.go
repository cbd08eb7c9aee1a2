// Package heuristic adds a small prior to contradiction probabilities when both
// sentences of a pair carry comparable quantitative or temporal content.
package heuristic

import "regexp"

// DefaultBoost is the flat amount added when a pair qualifies.
const DefaultBoost = 0.05

var (
	numberPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\b`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`),
		regexp.MustCompile(`\bQ[1-4]\b`),
		regexp.MustCompile(`\b(?:19|20)?\d{2}\b`),
	}
)

// Booster computes the heuristic boost for a sentence pair. It is pure and safe
// for concurrent use.
type Booster struct {
	amount float64
}

// New returns a Booster adding amount to qualifying pairs. A negative amount is treated as zero.
func New(amount float64) *Booster {
	if amount < 0 {
		amount = 0
	}
	return &Booster{amount: amount}
}

// Amount reports the configured boost.
func (b *Booster) Amount() float64 {
	return b.amount
}

// Boost returns the configured amount when both sentences contain a numeric token
// or both contain a date or time token, and 0 otherwise.
func (b *Booster) Boost(a, c string) float64 {
	if b.amount == 0 {
		return 0
	}
	if HasNumber(a) && HasNumber(c) {
		return b.amount
	}
	if HasDate(a) && HasDate(c) {
		return b.amount
	}
	return 0
}

// HasNumber reports whether s contains an integer or decimal token.
func HasNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// HasDate reports whether s contains a day/month/year form, a clock time, a quarter
// label or a 2 to 4 digit year.
func HasDate(s string) bool {
	for _, re := range datePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
