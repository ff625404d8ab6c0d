package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

func TestStatusOf(t *testing.T) {
	cases := map[models.RiskLevel]models.Status{
		models.RiskLevelHigh:    models.StatusLocked,
		models.RiskLevelMedium:  models.StatusReview,
		models.RiskLevelLow:     models.StatusMonitor,
		models.RiskLevelNone:    models.StatusSafe,
		models.RiskLevelUnknown: models.StatusUnknown,
		"":                      models.StatusUnknown,
		"high risk":             models.StatusUnknown,
		"Critical":              models.StatusUnknown,
	}

	for level, want := range cases {
		assert.Equal(t, want, models.StatusOf(level), "level %q", level)
	}
}

func TestSeverityOrdersKnownLevelsFirst(t *testing.T) {
	assert.Less(t, models.RiskLevelHigh.Severity(), models.RiskLevelMedium.Severity())
	assert.Less(t, models.RiskLevelMedium.Severity(), models.RiskLevelLow.Severity())
	assert.Less(t, models.RiskLevelLow.Severity(), models.RiskLevelNone.Severity())
	assert.Less(t, models.RiskLevelNone.Severity(), models.RiskLevel("Other").Severity())
}

func TestTransactionDecodesUpstreamRow(t *testing.T) {
	raw := `{
		"id": 42,
		"client_id": "C1",
		"country": "US",
		"account_type": "Standard",
		"deposit_amount": 5000,
		"withdrawal_amount": 4900,
		"num_trades": 2,
		"fees_paid": 1.5,
		"payment_method": "Crypto",
		"risk_level": "High Risk",
		"detection_timestamp": "Tue, 04 Mar 2025 10:15:00 GMT"
	}`

	var tx models.Transaction
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))

	assert.Equal(t, int64(42), tx.ID)
	assert.Equal(t, "C1", tx.ClientID)
	assert.Equal(t, models.RiskLevelHigh, tx.RiskLevel)
	assert.Equal(t, 5000.0, tx.DepositAmount)
	require.NotNil(t, tx.NumTrades)
	assert.Equal(t, 2, *tx.NumTrades)
	assert.Nil(t, tx.TotalProfit)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC), tx.DetectionTimestamp.UTC())
}

func TestTimestampFormats(t *testing.T) {
	want := time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC)

	for _, input := range []string{
		"2025-03-04 10:15:00",
		"2025-03-04T10:15:00Z",
		"Tue, 04 Mar 2025 10:15:00 GMT",
		"2025-03-04T10:15:00",
	} {
		ts, err := models.ParseTimestamp(input)
		require.NoError(t, err, input)
		assert.True(t, want.Equal(ts.Time), input)
	}

	_, err := models.ParseTimestamp("04/03/2025")
	assert.Error(t, err)
}

func TestTimestampAbsent(t *testing.T) {
	var tx models.Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"client_id":"C9","detection_timestamp":null}`), &tx))
	assert.True(t, tx.DetectionTimestamp.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"client_id":"C9"}`), &tx))
	assert.True(t, tx.DetectionTimestamp.IsZero())

	out, err := json.Marshal(tx.DetectionTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestCaseViewCarriesStatus(t *testing.T) {
	view := models.NewCaseView(models.Transaction{ClientID: "C2", RiskLevel: models.RiskLevelMedium})

	out, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"status":"Review"`)
	assert.Contains(t, string(out), `"client_id":"C2"`)
}

func TestFallbackSummary(t *testing.T) {
	assert.Equal(t, models.FraudSummary{
		ClientID:  "C1",
		RiskLevel: "Unknown",
		Reason:    "No fraud detected or data missing.",
	}, models.FallbackSummary("C1"))
}
