package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
)

// UnclassifiedBucket labels holdings whose dimension value is empty.
const UnclassifiedBucket = "Unclassified"

// BucketRow is one bucket of a dimension aggregation before persistence.
type BucketRow struct {
	Label        string
	TotalValue   decimal.Decimal
	HoldingCount int
}

type analyticsService struct {
	db       *gorm.DB
	resolver ColumnResolverServicer
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB, resolver ColumnResolverServicer) AnalyticsServicer {
	return &analyticsService{db: db, resolver: resolver}
}

// Compute evaluates an analytic: buckets every self-managed holding of the
// portfolio along each active dimension and persists the result rows under a
// new run. The run always reaches a terminal state; the evaluation error is
// recorded on the run and returned.
func (s *analyticsService) Compute(analyticID string) (*models.AnalyticRun, error) {
	var analytic models.Analytic
	err := s.db.Preload("Dimensions", "is_active = ?", true).
		First(&analytic, "id = ?", analyticID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAnalyticNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	run := &models.AnalyticRun{AnalyticID: analytic.ID}
	run.Status = models.RunStatusPending
	if err := s.db.Create(run).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.evaluate(&analytic, run); err != nil {
		s.finishRun(&run.RunState, run, err)
		return run, err
	}
	s.finishRun(&run.RunState, run, nil)
	return run, nil
}

func (s *analyticsService) evaluate(analytic *models.Analytic, run *models.AnalyticRun) error {
	now := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	if err := s.db.Model(run).Updates(map[string]interface{}{
		"status": models.RunStatusRunning, "started_at": now,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holdings, err := portfolioHoldings(s.db, analytic.PortfolioID)
	if err != nil {
		return err
	}

	var results []models.AnalyticResult
	for i := range analytic.Dimensions {
		dim := &analytic.Dimensions[i]
		rows := s.AggregateDimension(analytic.ValueIdentifier, dim, holdings)
		grand := decimal.Zero
		for _, row := range rows {
			grand = grand.Add(row.TotalValue)
		}
		for idx, row := range rows {
			pct := decimal.Zero
			if !grand.IsZero() {
				pct = row.TotalValue.Div(grand).Mul(decimal.NewFromInt(100)).Round(2)
			}
			results = append(results, models.AnalyticResult{
				RunID:        run.ID,
				DimensionID:  dim.ID,
				BucketLabel:  row.Label,
				TotalValue:   row.TotalValue,
				Percentage:   pct,
				HoldingCount: row.HoldingCount,
				SortIndex:    idx,
			})
		}
	}

	if len(results) == 0 {
		return nil
	}
	if err := s.db.Create(&results).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AggregateDimension buckets holdings along one dimension. A holding with
// DimensionWeight rows contributes its base value fractionally to each
// weighted bucket; otherwise it contributes fully to the bucket named by its
// resolved dimension value. Holdings with a zero base value are skipped.
// Rows come back sorted by total value descending, largest bucket first;
// value ties keep the order buckets were first seen in.
func (s *analyticsService) AggregateDimension(valueIdentifier string, dimension *models.AnalyticDimension, holdings []models.Holding) []BucketRow {
	totals := map[string]*BucketRow{}
	var order []string
	add := func(label string, value decimal.Decimal) {
		row, ok := totals[label]
		if !ok {
			row = &BucketRow{Label: label}
			totals[label] = row
			order = append(order, label)
		}
		row.TotalValue = row.TotalValue.Add(value)
		row.HoldingCount++
	}

	for i := range holdings {
		h := &holdings[i]
		base := s.resolver.GetDecimal(h.ID, valueIdentifier)
		if base.IsZero() {
			continue
		}

		var weights []models.DimensionWeight
		err := s.db.Where("dimension_id = ? AND holding_id = ?", dimension.ID, h.ID).
			Find(&weights).Error
		if err != nil {
			logger.Get().Warnw("dimension weight lookup failed",
				"dimension_id", dimension.ID, "holding_id", h.ID, "error", err)
			continue
		}

		if len(weights) > 0 {
			for _, w := range weights {
				add(w.BucketLabel, base.Mul(w.Weight))
			}
			continue
		}

		label := strings.TrimSpace(s.rawValue(h.ID, dimension.SourceIdentifier))
		if label == "" {
			label = UnclassifiedBucket
		}
		add(label, base)
	}

	rows := make([]BucketRow, 0, len(order))
	for _, label := range order {
		rows = append(rows, *totals[label])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalValue.GreaterThan(rows[j].TotalValue)
	})
	return rows
}

// rawValue reads the materialized string value for a holding/identifier pair.
func (s *analyticsService) rawValue(holdingID, identifier string) string {
	var scv models.SchemaColumnValue
	err := s.db.Joins("JOIN schema_columns ON schema_columns.id = schema_column_values.column_id").
		Where("schema_column_values.holding_id = ? AND schema_columns.identifier = ?", holdingID, identifier).
		First(&scv).Error
	if err != nil {
		return ""
	}
	return scv.Value
}

func (s *analyticsService) finishRun(state *models.RunState, run interface{}, evalErr error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{"finished_at": now}
	if evalErr != nil {
		state.Status = models.RunStatusFailed
		state.ErrorMessage = evalErr.Error()
		updates["status"] = models.RunStatusFailed
		updates["error_message"] = evalErr.Error()
	} else {
		state.Status = models.RunStatusSuccess
		updates["status"] = models.RunStatusSuccess
	}
	state.FinishedAt = &now
	if err := s.db.Model(run).Updates(updates).Error; err != nil {
		logger.Get().Errorw("could not finalize run", "error", err)
	}
}

// portfolioHoldings loads every holding across the portfolio's self-managed
// accounts. Managed accounts carry aggregates and do not participate in
// holding-level analytics.
func portfolioHoldings(db *gorm.DB, portfolioID string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := db.Preload("Asset").Preload("Account").
		Joins("JOIN accounts ON accounts.id = holdings.account_id").
		Where("accounts.portfolio_id = ? AND accounts.mode = ?",
			portfolioID, models.AccountModeSelfManaged).
		Find(&holdings).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return holdings, nil
}
