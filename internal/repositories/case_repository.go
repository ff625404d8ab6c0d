package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

// listCasesQuery reads the scoring service's case table newest first, the
// order the loader keeps.
// Numeric columns are cast so INT and FLOAT schemas scan alike.
const listCasesQuery = `
	SELECT id, client_id,
	       deposit_amount::float8, withdrawal_amount::float8,
	       detection_timestamp, risk_level, country,
	       COALESCE(account_type, ''),
	       num_trades::int8, avg_trade_amount::float8, trade_duration::int8,
	       total_profit::float8, fees_paid::float8,
	       COALESCE(payment_method, '')
	FROM fraud_cases
	ORDER BY id DESC
`

// CaseRepository reads flagged cases
type CaseRepository struct {
	db *Database
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *Database) *CaseRepository {
	return &CaseRepository{db: db}
}

// ListCases returns every flagged case, newest first
func (r *CaseRepository) ListCases(ctx context.Context) ([]models.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, listCasesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud cases: %w", err)
	}
	defer rows.Close()

	cases := []models.Transaction{}
	for rows.Next() {
		t, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fraud case: %w", err)
		}
		cases = append(cases, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fraud cases: %w", err)
	}

	return cases, nil
}

func scanCase(row pgx.Row) (models.Transaction, error) {
	var (
		t             models.Transaction
		detectedAt    *time.Time
		riskLevel     string
		numTrades     *int64
		tradeDuration *int64
	)

	err := row.Scan(
		&t.ID,
		&t.ClientID,
		&t.DepositAmount,
		&t.WithdrawalAmount,
		&detectedAt,
		&riskLevel,
		&t.Country,
		&t.AccountType,
		&numTrades,
		&t.AvgTradeAmount,
		&tradeDuration,
		&t.TotalProfit,
		&t.FeesPaid,
		&t.PaymentMethod,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	t.RiskLevel = models.RiskLevel(riskLevel)
	if detectedAt != nil {
		t.DetectionTimestamp = models.Timestamp{Time: detectedAt.UTC()}
	}
	t.NumTrades = intPtr(numTrades)
	t.TradeDuration = intPtr(tradeDuration)

	return t, nil
}

func intPtr(v *int64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
