package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
)

var hundred = decimal.NewFromInt(100)

type allocationService struct {
	db       *gorm.DB
	resolver ColumnResolverServicer
}

// NewAllocationService creates a new AllocationServicer.
func NewAllocationService(db *gorm.DB, resolver ColumnResolverServicer) AllocationServicer {
	return &allocationService{db: db, resolver: resolver}
}

// Evaluate computes actual-vs-target gaps for every active dimension of a
// scenario and persists them under a new run. The run always reaches a
// terminal state; the evaluation error is recorded on the run and returned.
func (s *allocationService) Evaluate(scenarioID string) (*models.AllocationRun, error) {
	var scenario models.AllocationScenario
	err := s.db.Preload("Dimensions", "is_active = ?", true).
		Preload("Dimensions.Targets", "is_active = ?", true).
		First(&scenario, "id = ?", scenarioID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrScenarioNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	run := &models.AllocationRun{ScenarioID: scenario.ID}
	run.Status = models.RunStatusPending
	if err := s.db.Create(run).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.evaluate(&scenario, run); err != nil {
		s.finishRun(run, err)
		return run, err
	}
	s.finishRun(run, nil)
	return run, nil
}

func (s *allocationService) evaluate(scenario *models.AllocationScenario, run *models.AllocationRun) error {
	now := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	if err := s.db.Model(run).Updates(map[string]interface{}{
		"status": models.RunStatusRunning, "started_at": now,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holdings, err := portfolioHoldings(s.db, scenario.PortfolioID)
	if err != nil {
		return err
	}

	// Base values resolve once per holding; grand total divides percentages.
	bases := make(map[string]decimal.Decimal, len(holdings))
	grand := decimal.Zero
	for i := range holdings {
		base := s.resolver.GetDecimal(holdings[i].ID, scenario.ValueIdentifier)
		bases[holdings[i].ID] = base
		grand = grand.Add(base)
	}

	var results []models.AllocationGapResult
	for i := range scenario.Dimensions {
		dim := &scenario.Dimensions[i]
		actuals, counts := s.bucketActuals(dim, holdings, bases)

		covered := map[string]bool{}
		for j := range dim.Targets {
			target := &dim.Targets[j]
			covered[target.Label] = true
			results = append(results, s.gapRow(run.ID, dim, target, grand,
				actuals[target.Label], counts[target.Label]))
		}

		// Buckets with actual value but no target still surface, with a
		// zero target, so over-allocation is visible.
		for label, actual := range actuals {
			if covered[label] {
				continue
			}
			actualPct := decimal.Zero
			if !grand.IsZero() {
				actualPct = actual.Div(grand).Mul(hundred).Round(2)
			}
			dimID := dim.ID
			results = append(results, models.AllocationGapResult{
				RunID:         run.ID,
				DimensionID:   &dimID,
				BucketLabel:   label,
				ActualValue:   actual,
				GapValue:      actual.Neg(),
				ActualPercent: actualPct,
				GapPercent:    actualPct.Neg(),
				HoldingCount:  counts[label],
			})
		}
	}

	if len(results) > 0 {
		if err := s.db.Create(&results).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// gapRow materializes one actual-vs-target comparison. The target's label is
// copied onto the row so later target renames do not rewrite run history.
func (s *allocationService) gapRow(runID string, dim *models.AllocationDimension, target *models.AllocationTarget, grand, actual decimal.Decimal, count int) models.AllocationGapResult {
	// An absolute target value wins; percent-only targets derive theirs
	// from the grand total.
	targetValue := target.TargetValue
	if targetValue.IsZero() && !target.TargetPercent.IsZero() {
		targetValue = grand.Mul(target.TargetPercent).Div(hundred)
	}

	actualPct := decimal.Zero
	if !grand.IsZero() {
		actualPct = actual.Div(grand).Mul(hundred).Round(2)
	}

	dimID := dim.ID
	targetID := target.ID
	return models.AllocationGapResult{
		RunID:         runID,
		DimensionID:   &dimID,
		TargetID:      &targetID,
		BucketLabel:   target.Label,
		ActualValue:   actual,
		TargetValue:   targetValue,
		GapValue:      targetValue.Sub(actual),
		ActualPercent: actualPct,
		TargetPercent: target.TargetPercent,
		GapPercent:    target.TargetPercent.Sub(actualPct),
		HoldingCount:  count,
	}
}

// bucketActuals sums holding base values by the dimension's resolved value.
func (s *allocationService) bucketActuals(dim *models.AllocationDimension, holdings []models.Holding, bases map[string]decimal.Decimal) (map[string]decimal.Decimal, map[string]int) {
	actuals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for i := range holdings {
		h := &holdings[i]
		base := bases[h.ID]
		if base.IsZero() {
			continue
		}
		label := strings.TrimSpace(s.rawValue(h.ID, dim.SourceIdentifier))
		if label == "" {
			label = UnclassifiedBucket
		}
		actuals[label] = actuals[label].Add(base)
		counts[label]++
	}
	return actuals, counts
}

func (s *allocationService) rawValue(holdingID, identifier string) string {
	var scv models.SchemaColumnValue
	err := s.db.Joins("JOIN schema_columns ON schema_columns.id = schema_column_values.column_id").
		Where("schema_column_values.holding_id = ? AND schema_columns.identifier = ?", holdingID, identifier).
		First(&scv).Error
	if err != nil {
		return ""
	}
	return scv.Value
}

func (s *allocationService) finishRun(run *models.AllocationRun, evalErr error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{"finished_at": now}
	if evalErr != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = evalErr.Error()
		updates["status"] = models.RunStatusFailed
		updates["error_message"] = evalErr.Error()
	} else {
		run.Status = models.RunStatusSuccess
		updates["status"] = models.RunStatusSuccess
	}
	run.FinishedAt = &now
	if err := s.db.Model(run).Updates(updates).Error; err != nil {
		logger.Get().Errorw("could not finalize allocation run", "error", err)
	}
}
