package usecase

import (
	"reflect"
	"strings"
	"testing"

	"sentinel/internal/domain"
)

func TestRedactPIIMasksEveryCategory(t *testing.T) {
	r := NewRedactor()
	cases := []struct {
		name        string
		input       string
		placeholder string
		piiType     domain.PIIType
	}{
		{"email", "contact me at jane.doe@example.com please", "[EMAIL_REDACTED]", domain.PIIEmail},
		{"ssn", "my ssn is 123-45-6789 ok", "[SSN_REDACTED]", domain.PIISSN},
		{"card", "card 4111 1111 1111 1111 on file", "[CARD_REDACTED]", domain.PIICreditCard},
		{"phone", "call me on (415) 555-0199 today", "[PHONE_REDACTED]", domain.PIIPhone},
		{"address", "I live at 42 Elm Street in town", "[ADDRESS_REDACTED]", domain.PIIAddress},
		{"postal", "zip is 94103 here", "[POSTAL_REDACTED]", domain.PIIPostalCode},
		{"dob", "DOB: 1990-04-12 as requested", "[DOB_REDACTED]", domain.PIIDateOfBirth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := r.RedactPII(tc.input)
			if !strings.Contains(result.Redacted, tc.placeholder) {
				t.Fatalf("expected %s in %q", tc.placeholder, result.Redacted)
			}
			found := false
			for _, pt := range result.PIITypes {
				if pt == tc.piiType {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s in pii types %v", tc.piiType, result.PIITypes)
			}
		})
	}
}

func TestRedactPIIDeduplicatesCategories(t *testing.T) {
	r := NewRedactor()
	result := r.RedactPII("a@example.com and b@example.com")
	if len(result.PIITypes) != 1 || result.PIITypes[0] != domain.PIIEmail {
		t.Fatalf("expected one email category, got %v", result.PIITypes)
	}
	if strings.Count(result.Redacted, "[EMAIL_REDACTED]") != 2 {
		t.Fatalf("expected both occurrences masked, got %q", result.Redacted)
	}
}

func TestRedactPIIIdempotent(t *testing.T) {
	r := NewRedactor()
	inputs := []string{
		"email jane@example.com phone (415) 555-0199 ssn 123-45-6789",
		"no pii here at all",
		"",
	}
	for _, input := range inputs {
		first := r.RedactPII(input)
		second := r.RedactPII(first.Redacted)
		if second.Redacted != first.Redacted {
			t.Fatalf("redaction not idempotent: %q vs %q", first.Redacted, second.Redacted)
		}
		if len(second.PIITypes) != 0 {
			t.Fatalf("expected no new pii types on second pass, got %v", second.PIITypes)
		}
	}
}

func TestRedactPIIFingerprintStable(t *testing.T) {
	r := NewRedactor()
	a := r.RedactPII("email jane@example.com")
	b := r.RedactPII("email jane@example.com")
	if a.OriginalHash == "" || a.OriginalHash != b.OriginalHash {
		t.Fatalf("expected stable fingerprint, got %q vs %q", a.OriginalHash, b.OriginalHash)
	}
	c := r.RedactPII("email john@example.com")
	if c.OriginalHash == a.OriginalHash {
		t.Fatalf("expected different fingerprint for different input")
	}
}

func TestRedactPIICleanTextUntouched(t *testing.T) {
	r := NewRedactor()
	input := "Senior engineer with Go and Postgres experience"
	result := r.RedactPII(input)
	if result.Redacted != input {
		t.Fatalf("expected clean text unchanged, got %q", result.Redacted)
	}
	if !reflect.DeepEqual(result.PIITypes, []domain.PIIType(nil)) {
		t.Fatalf("expected no pii types, got %v", result.PIITypes)
	}
}
