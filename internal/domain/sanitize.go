package domain

type ThreatCategory string

const (
	ThreatInstructionOverride ThreatCategory = "instruction_override"
	ThreatRoleManipulation    ThreatCategory = "role_manipulation"
	ThreatJailbreakPersona    ThreatCategory = "jailbreak_persona"
	ThreatRoleplayExploit     ThreatCategory = "roleplay_exploit"
	ThreatPromptLeaking       ThreatCategory = "prompt_leaking"
	ThreatTokenSmuggling      ThreatCategory = "token_smuggling"
	ThreatMultiTurn           ThreatCategory = "multi_turn_manipulation"
	ThreatDataExfiltration    ThreatCategory = "data_exfiltration"
	ThreatDelimiterInjection  ThreatCategory = "delimiter_injection"
	ThreatOverflow            ThreatCategory = "overflow"
)

// ThreatInfo records one catalog match for audit review. Position is the
// byte offset of the match in the text the scan ran over (the original text,
// or the normalized copy for matches only visible after folding); Context is
// a window of roughly 20 characters on each side.
type ThreatInfo struct {
	Category ThreatCategory `json:"category"`
	Pattern  string         `json:"pattern"`
	Position int            `json:"position"`
	Context  string         `json:"context"`
}

type SanitizationResult struct {
	Sanitized           string       `json:"sanitized"`
	Threats             []ThreatInfo `json:"threats"`
	HasMaliciousContent bool         `json:"has_malicious_content"`
	PIIRedacted         bool         `json:"pii_redacted"`
	OriginalHash        string       `json:"original_hash"`
}

type PIIType string

const (
	PIIPhone       PIIType = "phone"
	PIIEmail       PIIType = "email"
	PIISSN         PIIType = "ssn"
	PIIAddress     PIIType = "street_address"
	PIIPostalCode  PIIType = "postal_code"
	PIICreditCard  PIIType = "credit_card"
	PIIDateOfBirth PIIType = "date_of_birth"
)

type RedactionResult struct {
	Redacted     string    `json:"redacted"`
	PIITypes     []PIIType `json:"pii_types"`
	OriginalHash string    `json:"original_hash"`
}
