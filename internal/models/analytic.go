package models

import "github.com/shopspring/decimal"

// Analytic configures a dimension-bucketed aggregation over a portfolio.
// ValueIdentifier names the schema column used as each holding's base value.
type Analytic struct {
	Base
	PortfolioID     string `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	Name            string `gorm:"not null" json:"name"`
	ValueIdentifier string `gorm:"not null" json:"value_identifier"`
	IsActive        bool   `gorm:"not null;default:true" json:"is_active"`

	Dimensions []AnalyticDimension `gorm:"foreignKey:AnalyticID" json:"dimensions,omitempty"`
	Runs       []AnalyticRun       `gorm:"foreignKey:AnalyticID" json:"runs,omitempty"`
}

// AnalyticDimension is one bucketing axis of an analytic, e.g. "sector" or
// "country". SourceIdentifier names the schema column whose value determines
// the bucket; fractional membership comes from DimensionWeight rows.
type AnalyticDimension struct {
	Base
	AnalyticID       string `gorm:"type:uuid;not null;index" json:"analytic_id"`
	Name             string `gorm:"not null" json:"name"`
	SourceIdentifier string `gorm:"not null" json:"source_identifier"`
	IsActive         bool   `gorm:"not null;default:true" json:"is_active"`
}

// DimensionWeight lets a single holding contribute fractionally to multiple
// buckets of one dimension, e.g. geographic exposure split across countries.
// Weights for a holding need not sum to 1, though they conventionally do.
type DimensionWeight struct {
	Base
	DimensionID string          `gorm:"type:uuid;not null;index;uniqueIndex:uq_weight_dimension_holding_bucket" json:"dimension_id"`
	HoldingID   string          `gorm:"type:uuid;not null;index;uniqueIndex:uq_weight_dimension_holding_bucket" json:"holding_id"`
	BucketLabel string          `gorm:"not null;uniqueIndex:uq_weight_dimension_holding_bucket" json:"bucket_label"`
	Weight      decimal.Decimal `gorm:"type:numeric;not null" json:"weight"`
}

// AnalyticRun is one evaluation of an analytic.
type AnalyticRun struct {
	Base
	AnalyticID string `gorm:"type:uuid;not null;index" json:"analytic_id"`
	RunState

	Results []AnalyticResult `gorm:"foreignKey:RunID" json:"results,omitempty"`
}

// AnalyticResult is one bucket row of an analytic run. Results are always
// replaced wholesale per run, never patched incrementally.
type AnalyticResult struct {
	Base
	RunID       string `gorm:"type:uuid;not null;index" json:"run_id"`
	DimensionID string `gorm:"type:uuid;not null;index" json:"dimension_id"`
	BucketLabel string `gorm:"not null" json:"bucket_label"`

	TotalValue   decimal.Decimal `gorm:"type:numeric;not null" json:"total_value"`
	Percentage   decimal.Decimal `gorm:"type:numeric;not null" json:"percentage"`
	HoldingCount int             `gorm:"not null;default:0" json:"holding_count"`
	SortIndex    int             `gorm:"not null;default:0" json:"sort_index"`
}
