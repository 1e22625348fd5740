package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"sentinel/internal/domain"
	cryptoinfra "sentinel/internal/infra/crypto"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxContentLength is the hard ceiling on sanitized output, in runes.
	MaxContentLength = 100000

	redactionMarker = "[REDACTED]"
	contextWindow   = 20
)

type threatPattern struct {
	category domain.ThreatCategory
	re       *regexp.Regexp
}

// threatCatalog is scanned in order. Pattern matching is a fast first-pass
// filter, not complete protection: it catches unsophisticated attacks and
// must be paired with Sandbox delimiters and model-level instructions that
// treat sandboxed content as data only.
var threatCatalog = []threatPattern{
	{domain.ThreatInstructionOverride, regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above|earlier)\s+(?:instructions?|prompts?|rules?)`)},
	{domain.ThreatInstructionOverride, regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:previous|prior|your)\s+(?:instructions?|guidelines?)`)},
	{domain.ThreatInstructionOverride, regexp.MustCompile(`(?i)forget\s+(?:everything|all)\s+(?:above|before|you\s+know)`)},
	{domain.ThreatInstructionOverride, regexp.MustCompile(`(?i)new\s+instructions?\s*:`)},
	{domain.ThreatRoleManipulation, regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an|the|in)\b`)},
	{domain.ThreatRoleManipulation, regexp.MustCompile(`(?i)\bact\s+as\s+(?:a|an|if|though)\b`)},
	{domain.ThreatRoleManipulation, regexp.MustCompile(`(?i)pretend\s+(?:to\s+be|you\s+are|you're)`)},
	{domain.ThreatRoleManipulation, regexp.MustCompile(`(?i)from\s+now\s+on\s*,?\s+you\b`)},
	{domain.ThreatJailbreakPersona, regexp.MustCompile(`(?i)\b(?:DAN|AIM|STAN|DUDE)\s+(?:mode|prompt|jailbreak)\b`)},
	{domain.ThreatJailbreakPersona, regexp.MustCompile(`(?i)do\s+anything\s+now`)},
	{domain.ThreatJailbreakPersona, regexp.MustCompile(`(?i)\b(?:developer|root|sudo|god|admin)\s+mode\b`)},
	{domain.ThreatJailbreakPersona, regexp.MustCompile(`(?i)\bjailbreak(?:ed|ing)?\b`)},
	{domain.ThreatRoleplayExploit, regexp.MustCompile(`(?i)hypothetical\s+(?:scenario|situation|world)`)},
	{domain.ThreatRoleplayExploit, regexp.MustCompile(`(?i)no\s+ethic(?:s|al)\s+(?:concerns?|guidelines?|restrictions?)`)},
	{domain.ThreatRoleplayExploit, regexp.MustCompile(`(?i)without\s+(?:any\s+)?(?:moral|ethical|safety)\s+(?:concerns?|restrictions?|limits?)`)},
	{domain.ThreatPromptLeaking, regexp.MustCompile(`(?i)(?:reveal|show|print|display|repeat|output)\s+(?:your\s+|the\s+)?system\s+prompt`)},
	{domain.ThreatPromptLeaking, regexp.MustCompile(`(?i)what\s+(?:are|were)\s+your\s+(?:initial\s+|original\s+)?instructions`)},
	{domain.ThreatPromptLeaking, regexp.MustCompile(`(?i)repeat\s+the\s+(?:text|words|everything)\s+above`)},
	{domain.ThreatTokenSmuggling, regexp.MustCompile(`(?i)base64\s*(?:decode|encode|string)`)},
	{domain.ThreatTokenSmuggling, regexp.MustCompile(`(?i)decode\s+(?:this|the\s+following)`)},
	{domain.ThreatTokenSmuggling, regexp.MustCompile(`(?i)\bhex\s+decode\b`)},
	{domain.ThreatTokenSmuggling, regexp.MustCompile(`(?i)(?:read|say|write)\s+(?:this|it)\s+(?:backwards|in\s+reverse)`)},
	{domain.ThreatMultiTurn, regexp.MustCompile(`(?i)as\s+(?:we|you)\s+(?:agreed|discussed|established)\s+(?:earlier|before|previously)`)},
	{domain.ThreatMultiTurn, regexp.MustCompile(`(?i)remember\s+(?:when|what)\s+(?:you|we)\s+(?:said|agreed|discussed)`)},
	{domain.ThreatMultiTurn, regexp.MustCompile(`(?i)continuing\s+(?:from\s+)?(?:our|the)\s+(?:last|previous)\s+(?:conversation|session|chat)`)},
	{domain.ThreatDataExfiltration, regexp.MustCompile(`(?i)(?:export|forward|send|leak|exfiltrate)\s+(?:all\s+)?(?:the\s+|user\s+|my\s+)*data`)},
	{domain.ThreatDataExfiltration, regexp.MustCompile(`(?i)(?:email|post|upload)\s+(?:this|the\s+results?|everything)\s+to\b`)},
	{domain.ThreatDelimiterInjection, regexp.MustCompile(`(?i)<\|?(?:im_start|im_end|system|endoftext)\|?>`)},
	{domain.ThreatDelimiterInjection, regexp.MustCompile("(?i)```\\s*system")},
	{domain.ThreatDelimiterInjection, regexp.MustCompile(`(?i)\[\s*system\s*\]`)},
	{domain.ThreatDelimiterInjection, regexp.MustCompile(`(?i)###\s*system`)},
	{domain.ThreatDelimiterInjection, regexp.MustCompile(`(?i)<<\s*sys\s*>>`)},
}

type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize runs the full pipeline: strip dangerous code points, scan the
// threat catalog, fold compatibility forms and rescan, enforce the length
// ceiling.
// Pure and total: malformed input is stripped, never an error.
func (s *Sanitizer) Sanitize(text string) domain.SanitizationResult {
	original := stripDangerousRunes(text)

	var threats []domain.ThreatInfo
	working := original
	for _, pat := range threatCatalog {
		for _, loc := range pat.re.FindAllStringIndex(original, -1) {
			threats = append(threats, domain.ThreatInfo{
				Category: pat.category,
				Pattern:  pat.re.String(),
				Position: loc[0],
				Context:  contextSnippet(original, loc[0], loc[1]),
			})
		}
		working = pat.re.ReplaceAllLiteralString(working, redactionMarker)
	}

	// NFKC folds homograph substitutions (fullwidth, ligature, compatibility
	// forms) back onto the code points the catalog knows about. The folded
	// text is scanned again: a match only visible after folding was hidden
	// from the first pass, and leaving it would also hand the next Sanitize
	// call a finding this one missed.
	working = norm.NFKC.String(working)
	for _, pat := range threatCatalog {
		for _, loc := range pat.re.FindAllStringIndex(working, -1) {
			threats = append(threats, domain.ThreatInfo{
				Category: pat.category,
				Pattern:  pat.re.String(),
				Position: loc[0],
				Context:  contextSnippet(working, loc[0], loc[1]),
			})
		}
		working = pat.re.ReplaceAllLiteralString(working, redactionMarker)
	}

	if utf8.RuneCountInString(working) > MaxContentLength {
		working = string([]rune(working)[:MaxContentLength])
		threats = append(threats, domain.ThreatInfo{
			Category: domain.ThreatOverflow,
			Pattern:  "max_content_length",
			Position: MaxContentLength,
			Context:  "content truncated",
		})
	}

	return domain.SanitizationResult{
		Sanitized:           working,
		Threats:             threats,
		HasMaliciousContent: len(threats) > 0,
		OriginalHash:        cryptoinfra.SHA256Hex([]byte(text)),
	}
}

// Sandbox wraps text in explicit untrusted-data delimiters so downstream
// prompt assembly can never confuse it with trusted instructions.
func (s *Sanitizer) Sandbox(text, label string) string {
	if label == "" {
		label = "input"
	}
	var b strings.Builder
	b.WriteString("[UNTRUSTED_DATA:")
	b.WriteString(label)
	b.WriteString("]\n")
	b.WriteString(text)
	b.WriteString("\n[/UNTRUSTED_DATA:")
	b.WriteString(label)
	b.WriteString("]")
	return b.String()
}

// stripDangerousRunes removes control characters (keeping common
// whitespace), zero-width characters, and bidirectional overrides.
// Invalid byte sequences are dropped.
func stripDangerousRunes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == utf8.RuneError {
			continue
		}
		if r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', // zero-width
			'\u202a', '\u202b', '\u202c', '\u202d', '\u202e', // bidi embeds and overrides
			'\u2066', '\u2067', '\u2068', '\u2069': // bidi isolates
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func contextSnippet(text string, start, end int) string {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + contextWindow
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to]
}
