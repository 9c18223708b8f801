// Package heuristic is the local, deterministic fallback scanner used when
// the SentinelNexus backend cannot be reached. It runs a fixed, ordered set
// of pattern rules over the input and produces the same ScanResult shape the
// backend returns. It is pure: identical input and mode always yield an
// identical result.
package heuristic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sentinelnexus/guard/internal/models"
)

// rule одна эвристика: паттерн плюс готовое описание находки
type rule struct {
	pattern     *regexp.Regexp
	domain      string
	findingType string
	severity    models.Severity
	title       string
	description string
	// withEvidence captures the matched token into Finding.Evidence
	withEvidence bool
}

// Rules fire independently and in table order; several rules may match the
// same input. Patterns mirror what the backend's pattern stage detects.
var codeRules = []rule{
	{regexp.MustCompile(`sk-[a-zA-Z0-9]`), models.DomainCodeSecurity, "hardcoded_secret", models.SeverityCritical,
		"OpenAI API Key Found", "Hardcoded OpenAI key detected. Rotate immediately.", true},
	{regexp.MustCompile(`eval\(`), models.DomainCodeSecurity, "dangerous_function", models.SeverityCritical,
		"eval() Usage (CWE-95)", "eval() allows arbitrary code execution.", false},
	{regexp.MustCompile(`shell=True`), models.DomainCodeSecurity, "command_injection", models.SeverityHigh,
		"shell=True (CWE-78)", "subprocess with shell=True enables command injection.", false},
	{regexp.MustCompile(`verify=False`), models.DomainCodeSecurity, "ssl_verification_disabled", models.SeverityHigh,
		"TLS Verification Disabled (CWE-295)", "verify=False disables SSL certificate checking.", false},
	{regexp.MustCompile(`pickle`), models.DomainCodeSecurity, "insecure_deserialization", models.SeverityHigh,
		"Pickle Import (CWE-502)", "pickle is unsafe with untrusted data.", false},
	{regexp.MustCompile(`SELECT.*\+`), models.DomainCodeSecurity, "sql_injection", models.SeverityCritical,
		"SQL Injection (CWE-89)", "String concatenation in SQL query.", false},
	{regexp.MustCompile(`(?i)password.*=.*["'][^"']+["']`), models.DomainCodeSecurity, "hardcoded_credential", models.SeverityCritical,
		"Hardcoded Password", "Password literal in source code.", false},
}

var promptRules = []rule{
	{regexp.MustCompile(`(?i)ignore.*previous.*instruction`), models.DomainPromptInjection, "jailbreak", models.SeverityCritical,
		"Prompt Injection Detected", `Classic "ignore instructions" jailbreak pattern.`, false},
	{regexp.MustCompile(`\bDAN\b|(?i)do anything now`), models.DomainPromptInjection, "jailbreak_persona", models.SeverityCritical,
		"DAN Persona Jailbreak", "Attempts to override model safety guidelines via DAN persona.", false},
	{regexp.MustCompile(`(?i)bypass.*filter|(?i)no restriction`), models.DomainPromptInjection, "safety_bypass", models.SeverityHigh,
		"Safety Filter Bypass (OWASP LLM01)", "Explicit attempt to bypass safety guardrails.", false},
	{regexp.MustCompile(`(?i)system prompt`), models.DomainPromptInjection, "data_exfiltration", models.SeverityHigh,
		"System Prompt Leakage Attempt", "Tries to extract the system prompt.", false},
	{regexp.MustCompile(`(?i)repeat after me`), models.DomainPromptInjection, "output_manipulation", models.SeverityMedium,
		"Output Manipulation Attempt", "Attempts to control model output.", false},
}

var piiRules = []rule{
	{regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.\w{2,}\b`), models.DomainPII, "email", models.SeverityHigh,
		"Email Address Detected", "Personal email found — GDPR Article 4 concern.", false},
	{regexp.MustCompile(`\d{3}-\d{2}-\d{4}`), models.DomainPII, "ssn", models.SeverityCritical,
		"Social Security Number", "SSN exposure violates HIPAA & GDPR.", false},
	{regexp.MustCompile(`\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}`), models.DomainPII, "credit_card", models.SeverityCritical,
		"Credit Card Number (PCI-DSS)", "PAN detected — PCI-DSS violation.", false},
	// at least ten digits so SSN-shaped values (nine digits) stay out
	{regexp.MustCompile(`\+?(?:[\s-]?\d){10,}`), models.DomainPII, "phone", models.SeverityMedium,
		"Phone Number Detected", "Phone number found in plaintext.", false},
	{regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`), models.DomainPII, "ip_address", models.SeverityLow,
		"IP Address Detected", "IP address is PII under GDPR.", false},
	{regexp.MustCompile(`GB\d{2}[A-Z]{4}\d{14}`), models.DomainPII, "iban", models.SeverityHigh,
		"IBAN Bank Account Number", "Bank account information exposed.", false},
}

var evidencePattern = regexp.MustCompile(`sk-[^\s"']*`)

// Scan runs the offline ruleset for the given mode over text. It never fails:
// any well-formed string yields a complete ScanResult, labeled offline.
func Scan(text string, mode models.ScanMode) models.ScanResult {
	var findings []models.Finding

	switch mode {
	case models.ModeCode:
		findings = runRules(codeRules, text)
	case models.ModePrompt:
		findings = runRules(promptRules, text)
	case models.ModePII:
		findings = runRules(piiRules, text)
	case models.ModeWeb:
		findings = scanHTML(text)
	}

	breakdown := models.CountBySeverity(findings)
	score := models.RiskScore(breakdown)

	return models.ScanResult{
		OverallRiskScore:   score,
		RiskLevel:          models.RiskLevelForScore(score),
		TotalFindings:      len(findings),
		Findings:           findings,
		FindingsBySeverity: breakdown,
		ScanMode:           mode,
		Offline:            true,
		ComplianceVerdicts: complianceVerdicts(findings, breakdown),
	}
}

func runRules(rules []rule, text string) []models.Finding {
	var findings []models.Finding
	for _, r := range rules {
		loc := r.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		f := models.Finding{
			ID:          strconv.Itoa(len(findings)),
			Domain:      r.domain,
			FindingType: r.findingType,
			Severity:    r.severity,
			Title:       r.title,
			Description: r.description,
			Location:    "line " + strconv.Itoa(lineOf(text, loc[0])),
		}
		if r.withEvidence {
			f.Evidence = evidencePattern.FindString(text)
		}
		findings = append(findings, f)
	}
	return findings
}

// lineOf converts a byte offset into a 1-based line number.
func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}

// complianceVerdicts derives per-framework verdicts from the finding counts.
// Это иллюстративные бизнес-правила для дашборда, НЕ реальная оценка
// соответствия — авторитетные вердикты выдаёт только бэкенд.
func complianceVerdicts(findings []models.Finding, b models.SeverityBreakdown) map[string]models.ComplianceVerdict {
	status := func(bad bool) string {
		if bad {
			return models.ComplianceNonCompliant
		}
		return models.ComplianceCompliant
	}
	floor := func(score int) int {
		if score < 0 {
			return 0
		}
		return score
	}

	hasPromptInjection := false
	hasCreditCard := false
	for _, f := range findings {
		if f.Domain == models.DomainPromptInjection {
			hasPromptInjection = true
		}
		if f.FindingType == "credit_card" {
			hasCreditCard = true
		}
	}

	pciScore := 100
	if hasCreditCard {
		pciScore = 0
	}

	return map[string]models.ComplianceVerdict{
		"GDPR":      {Status: status(b.Critical > 0), Score: floor(100 - b.Critical*20)},
		"EU AI Act": {Status: status(hasPromptInjection), Score: 85},
		"HIPAA":     {Status: status(b.Critical > 0), Score: floor(100 - b.Critical*25)},
		"SOC 2":     {Status: status(b.High > 2), Score: floor(100 - b.High*10)},
		"PCI-DSS":   {Status: status(hasCreditCard), Score: pciScore},
	}
}
