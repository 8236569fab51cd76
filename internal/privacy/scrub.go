// Package privacy scrubs personally identifiable information from text
// before it is logged, persisted, or sent to an external model provider.
// Student speech is the most PII-dense data in the system, so everything
// that leaves the session hot path passes through Scrub first.
package privacy

import "regexp"

// Replacement placeholders for scrubbed PII.
const (
	PlaceholderEmail     = "<EMAIL>"
	PlaceholderPhone     = "<PHONE>"
	PlaceholderName      = "<NAME>"
	PlaceholderSIN       = "<SIN>"
	PlaceholderStudentID = "<STUDENT_ID>"
	PlaceholderAddress   = "<ADDRESS>"
)

var (
	emailPattern = regexp.MustCompile(`(?i)[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// North American phone formats, including bare 7-digit local numbers.
	phonePattern = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\b\d{3}[-.\s]?\d{4}\b`)

	// Capitalized word pairs. Intentionally broad: false positives are
	// acceptable, leaked names are not.
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)

	// Canadian Social Insurance Numbers.
	sinPattern = regexp.MustCompile(`\b\d{3}[-\s]?\d{3}[-\s]?\d{3}\b`)

	// Numeric IDs with keyword context.
	studentIDPattern = regexp.MustCompile(`(?i)\b(?:student|id|#)[-:\s]*\d{5,10}\b`)

	// Basic street addresses.
	addressPattern = regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z]+(?:\s+[A-Za-z]+)*\s+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Boulevard|Blvd|Lane|Ln|Way|Court|Ct)\b`)
)

// Scrub replaces every detected piece of PII in text with a placeholder.
// Patterns apply most-specific first; the keyworded student-ID pattern must
// run before the SIN pattern so "student 123456789" is not mislabeled.
func Scrub(text string) string {
	if text == "" {
		return text
	}
	result := text
	result = emailPattern.ReplaceAllString(result, PlaceholderEmail)
	result = studentIDPattern.ReplaceAllString(result, PlaceholderStudentID)
	result = sinPattern.ReplaceAllString(result, PlaceholderSIN)
	result = phonePattern.ReplaceAllString(result, PlaceholderPhone)
	result = addressPattern.ReplaceAllString(result, PlaceholderAddress)
	result = namePattern.ReplaceAllString(result, PlaceholderName)
	return result
}

// ContainsPII reports whether text matches any PII pattern.
func ContainsPII(text string) bool {
	if text == "" {
		return false
	}
	return emailPattern.MatchString(text) ||
		phonePattern.MatchString(text) ||
		namePattern.MatchString(text) ||
		sinPattern.MatchString(text) ||
		studentIDPattern.MatchString(text) ||
		addressPattern.MatchString(text)
}
