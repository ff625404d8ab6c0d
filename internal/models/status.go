package models

// Status is the display label derived from a risk level. It is never stored.
type Status string

// Status enum values
const (
	StatusSafe    Status = "Safe"
	StatusMonitor Status = "Monitor"
	StatusReview  Status = "Review"
	StatusLocked  Status = "Locked"
	StatusUnknown Status = "Unknown"
)

// StatusOf maps a risk level to its display status
func StatusOf(level RiskLevel) Status {
	switch level {
	case RiskLevelHigh:
		return StatusLocked
	case RiskLevelMedium:
		return StatusReview
	case RiskLevelLow:
		return StatusMonitor
	case RiskLevelNone:
		return StatusSafe
	default:
		return StatusUnknown
	}
}
