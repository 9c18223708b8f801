package models

// RiskLevel coarse banding derived from the numeric risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelForScore bands a 0-100 score: <30 low, <60 medium, <80 high, else critical.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score < 30:
		return RiskLow
	case score < 60:
		return RiskMedium
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// SeverityBreakdown счётчики находок по уровням серьёзности
type SeverityBreakdown struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

func (b *SeverityBreakdown) Add(s Severity) {
	switch s {
	case SeverityCritical:
		b.Critical++
	case SeverityHigh:
		b.High++
	case SeverityMedium:
		b.Medium++
	case SeverityLow:
		b.Low++
	default:
		b.Info++
	}
}

func (b SeverityBreakdown) Total() int {
	return b.Critical + b.High + b.Medium + b.Low + b.Info
}

// CountBySeverity groups findings by severity for display.
func CountBySeverity(findings []Finding) SeverityBreakdown {
	var b SeverityBreakdown
	for _, f := range findings {
		b.Add(f.Severity)
	}
	return b
}

// RiskScore converts severity counts to a 0-100 score:
// min(100, 20*critical + 10*high + 4*medium + 1*low). Info findings do not score.
func RiskScore(b SeverityBreakdown) int {
	score := 20*b.Critical + 10*b.High + 4*b.Medium + 1*b.Low
	if score > 100 {
		score = 100
	}
	return score
}

// ComplianceVerdict per-framework status. Produced by the offline heuristic
// path these are illustrative only, not a real compliance assessment.
type ComplianceVerdict struct {
	Status string `json:"status"`
	Score  int    `json:"score"`
}

const (
	ComplianceCompliant    = "compliant"
	ComplianceNonCompliant = "non_compliant"
)

// ScanResult terminal aggregate of one scan, whether it came from the
// streaming path, the REST API or the offline heuristic fallback.
type ScanResult struct {
	OverallRiskScore   int                          `json:"overall_risk_score" jsonschema:"description=0-100 aggregate risk score"`
	RiskLevel          RiskLevel                    `json:"risk_level" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	TotalFindings      int                          `json:"total_findings"`
	Findings           []Finding                    `json:"findings"`
	FindingsBySeverity SeverityBreakdown            `json:"findings_by_severity"`
	ScanMode           ScanMode                     `json:"scan_mode,omitempty"`
	Offline            bool                         `json:"offline,omitempty" jsonschema:"description=True when produced by the local heuristic fallback"`
	ComplianceVerdicts map[string]ComplianceVerdict `json:"compliance_verdicts,omitempty"`
}
