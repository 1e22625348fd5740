package usecase

import (
	"regexp"

	"sentinel/internal/domain"
	cryptoinfra "sentinel/internal/infra/crypto"
)

type piiRecognizer struct {
	piiType     domain.PIIType
	placeholder string
	re          *regexp.Regexp
}

// Recognizer order matters: SSNs and card numbers go before phone numbers so
// a digit run is claimed by the most specific category first.
var piiRecognizers = []piiRecognizer{
	{domain.PIIEmail, "[EMAIL_REDACTED]",
		regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{domain.PIISSN, "[SSN_REDACTED]",
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{domain.PIICreditCard, "[CARD_REDACTED]",
		regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{domain.PIIDateOfBirth, "[DOB_REDACTED]",
		regexp.MustCompile(`(?i)\b(?:dob|date\s+of\s+birth|born(?:\s+on)?)\s*:?\s*\d{1,4}[-/]\d{1,2}[-/]\d{1,4}\b`)},
	{domain.PIIPhone, "[PHONE_REDACTED]",
		regexp.MustCompile(`(?:\+?\d{1,3}[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`)},
	{domain.PIIAddress, "[ADDRESS_REDACTED]",
		regexp.MustCompile(`(?i)\b\d{1,6}\s+[A-Za-z0-9.\- ]{2,40}\s(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|way|place|pl)\b\.?`)},
	{domain.PIIPostalCode, "[POSTAL_REDACTED]",
		regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)},
}

type Redactor struct{}

func NewRedactor() *Redactor {
	return &Redactor{}
}

// RedactPII masks every occurrence of each recognized category with a
// category-specific placeholder. Idempotent: placeholders contain no digits
// or @ signs, so a second pass finds nothing.
func (r *Redactor) RedactPII(text string) domain.RedactionResult {
	redacted := text
	var types []domain.PIIType
	for _, rec := range piiRecognizers {
		if !rec.re.MatchString(redacted) {
			continue
		}
		redacted = rec.re.ReplaceAllLiteralString(redacted, rec.placeholder)
		types = append(types, rec.piiType)
	}
	return domain.RedactionResult{
		Redacted:     redacted,
		PIITypes:     types,
		OriginalHash: cryptoinfra.Fingerprint(text),
	}
}
