package audit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity indicates the importance of a detected risk.
type Severity int

// Severity levels for risk items.
const (
	// SeverityLow indicates informational findings and advisories.
	SeverityLow Severity = iota
	// SeverityMedium indicates a likely issue that should be reviewed.
	SeverityMedium
	// SeverityHigh indicates strong evidence of leakage that should block
	// training until resolved.
	SeverityHigh
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its string form.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, ok := ParseSeverity(raw)
	if !ok {
		return fmt.Errorf("invalid severity %q", raw)
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityLow and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "low":
		return SeverityLow, true
	case "medium":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	default:
		return SeverityLow, false
	}
}

// SeverityForScore maps a leak score onto a severity using the configured
// thresholds. The mapping is monotonic: a higher score never yields a lower
// severity.
func SeverityForScore(score float64, cfg *Config) Severity {
	switch {
	case score >= cfg.HighScoreThreshold:
		return SeverityHigh
	case score >= cfg.MediumScoreThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
