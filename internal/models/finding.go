package models

import "encoding/json"

// Severity уровень риска отдельной находки
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ParseSeverity maps a raw severity string to one of the five known levels.
// Unknown values degrade to info so a strange frame never breaks rendering.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

// Rank returns the sort weight of a severity, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSeverity(raw)
	return nil
}

// Risk domains a finding can belong to.
const (
	DomainCodeSecurity    = "code_security"
	DomainPromptInjection = "prompt_injection"
	DomainPII             = "pii"
	DomainWebSecurity     = "web_security"
)

// Finding одна обнаруженная проблема безопасности
type Finding struct {
	ID          string   `json:"id" jsonschema:"description=Identifier unique within one scan"`
	Domain      string   `json:"domain" jsonschema:"description=Risk domain (code_security, prompt_injection, pii, web_security)"`
	FindingType string   `json:"finding_type" jsonschema:"description=Fine-grained classifier, e.g. hardcoded_secret"`
	Severity    Severity `json:"severity" jsonschema:"enum=critical,enum=high,enum=medium,enum=low,enum=info"`
	Title       string   `json:"title" jsonschema:"description=Short human-readable title"`
	Description string   `json:"description" jsonschema:"description=What was found and why it matters"`
	Location    string   `json:"location,omitempty" jsonschema:"description=Source locator, e.g. file:line"`
	Evidence    string   `json:"evidence,omitempty" jsonschema:"description=Matched substring or snippet"`
}
