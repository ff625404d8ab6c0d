package models

// RiskLevel is the severity assigned by the upstream scoring service.
// Values outside the four known levels are carried through unchanged.
type RiskLevel string

// RiskLevel enum values (wire form used by the scoring service)
const (
	RiskLevelNone   RiskLevel = "No Risk"
	RiskLevelLow    RiskLevel = "Low Risk"
	RiskLevelMedium RiskLevel = "Medium Risk"
	RiskLevelHigh   RiskLevel = "High Risk"
)

// RiskLevelUnknown is reported by the summary fallback
const RiskLevelUnknown RiskLevel = "Unknown"

// Severity orders known levels from 1 (High) to 4 (No Risk); unknown levels
// sort last.
func (l RiskLevel) Severity() int {
	switch l {
	case RiskLevelHigh:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 3
	case RiskLevelNone:
		return 4
	default:
		return 5
	}
}

// Transaction is a flagged case as emitted by the scoring service.
// Cases are immutable once received.
type Transaction struct {
	ID                 int64     `json:"id"`
	ClientID           string    `json:"client_id"`
	DepositAmount      float64   `json:"deposit_amount"`
	WithdrawalAmount   float64   `json:"withdrawal_amount"`
	DetectionTimestamp Timestamp `json:"detection_timestamp"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Country            string    `json:"country"`

	// Optional upstream columns, passed through for the case table
	AccountType    string   `json:"account_type,omitempty"`
	NumTrades      *int     `json:"num_trades,omitempty"`
	AvgTradeAmount *float64 `json:"avg_trade_amount,omitempty"`
	TradeDuration  *int     `json:"trade_duration,omitempty"`
	TotalProfit    *float64 `json:"total_profit,omitempty"`
	FeesPaid       *float64 `json:"fees_paid,omitempty"`
	PaymentMethod  string   `json:"payment_method,omitempty"`
}

// AlertEvent is the body of a pushed fraud alert. Data is nil when the
// body carried no case.
type AlertEvent struct {
	Message string       `json:"message,omitempty"`
	Data    *Transaction `json:"data"`
}

// CaseView is a case enriched with its display status
type CaseView struct {
	Transaction
	Status Status `json:"status"`
}

// NewCaseView derives the display status for t
func NewCaseView(t Transaction) CaseView {
	return CaseView{Transaction: t, Status: StatusOf(t.RiskLevel)}
}

// RiskDistributionEntry is one slice of the risk-level donut
type RiskDistributionEntry struct {
	RiskLevel  RiskLevel `json:"risk_level"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
}

// GeoTier marks the most concentrated country
type GeoTier string

// GeoTier enum values
const (
	GeoTierPeak     GeoTier = "Peak"
	GeoTierElevated GeoTier = "Elevated"
)

// GeoConcentrationEntry aggregates HighRisk cases for one country.
// Size, YOffset and XJitter are plot coordinates only.
type GeoConcentrationEntry struct {
	Country   string  `json:"country"`
	Count     int     `json:"count"`
	Intensity float64 `json:"intensity"`
	Tier      GeoTier `json:"tier"`

	Size    int     `json:"size"`
	YOffset int     `json:"y_offset"`
	XJitter float64 `json:"x_jitter"`
}

// FraudSummary is the narrative explanation for a client's latest case
type FraudSummary struct {
	ClientID  string    `json:"client_id"`
	RiskLevel RiskLevel `json:"risk_level"`
	Reason    string    `json:"reason"`
}

// FallbackReason is reported when no summary could be produced
const FallbackReason = "No fraud detected or data missing."

// FallbackSummary is substituted when the upstream reports an error or no data
func FallbackSummary(clientID string) FraudSummary {
	return FraudSummary{
		ClientID:  clientID,
		RiskLevel: RiskLevelUnknown,
		Reason:    FallbackReason,
	}
}

// Report is a generated document handed to the caller for local saving
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Pagination represents pagination parameters
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}
