package models

import "github.com/shopspring/decimal"

// AllocationScenario is a desired-allocation plan over one portfolio.
type AllocationScenario struct {
	Base
	PortfolioID string `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	Name        string `gorm:"not null" json:"name"`

	// ValueIdentifier names the schema column used as each holding's base
	// value when computing actual allocations.
	ValueIdentifier string `gorm:"not null;default:'current_value'" json:"value_identifier"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	Dimensions []AllocationDimension `gorm:"foreignKey:ScenarioID" json:"dimensions,omitempty"`
	Runs       []AllocationRun       `gorm:"foreignKey:ScenarioID" json:"runs,omitempty"`
}

// AllocationDimension is one allocation axis of a scenario, e.g. "sector".
// SourceIdentifier names the schema column whose value buckets holdings.
type AllocationDimension struct {
	Base
	ScenarioID       string `gorm:"type:uuid;not null;index" json:"scenario_id"`
	Name             string `gorm:"not null" json:"name"`
	SourceIdentifier string `gorm:"not null" json:"source_identifier"`
	IsActive         bool   `gorm:"not null;default:true" json:"is_active"`

	Targets []AllocationTarget `gorm:"foreignKey:DimensionID" json:"targets,omitempty"`
}

// AllocationTarget is one desired bucket of a dimension.
type AllocationTarget struct {
	Base
	DimensionID   string          `gorm:"type:uuid;not null;index" json:"dimension_id"`
	Label         string          `gorm:"not null" json:"label"`
	TargetPercent decimal.Decimal `gorm:"type:numeric;not null" json:"target_percent"`
	TargetValue   decimal.Decimal `gorm:"type:numeric;not null" json:"target_value"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
}

// AllocationRun is one evaluation of a scenario.
type AllocationRun struct {
	Base
	ScenarioID string `gorm:"type:uuid;not null;index" json:"scenario_id"`
	RunState

	Results []AllocationGapResult `gorm:"foreignKey:RunID" json:"results,omitempty"`
}

// AllocationGapResult is the materialized actual-vs-target comparison for one
// bucket of one run. BucketLabel snapshots the target's label at evaluation
// time so later renames do not rewrite history.
type AllocationGapResult struct {
	Base
	RunID       string  `gorm:"type:uuid;not null;index;uniqueIndex:uq_gap_run_dimension_bucket" json:"run_id"`
	DimensionID *string `gorm:"type:uuid;uniqueIndex:uq_gap_run_dimension_bucket" json:"dimension_id,omitempty"`
	TargetID    *string `gorm:"type:uuid" json:"target_id,omitempty"`
	BucketLabel string  `gorm:"not null;uniqueIndex:uq_gap_run_dimension_bucket" json:"bucket_label"`

	ActualValue decimal.Decimal `gorm:"type:numeric;not null" json:"actual_value"`
	TargetValue decimal.Decimal `gorm:"type:numeric;not null" json:"target_value"`
	GapValue    decimal.Decimal `gorm:"type:numeric;not null" json:"gap_value"`

	ActualPercent decimal.Decimal `gorm:"type:numeric;not null" json:"actual_percent"`
	TargetPercent decimal.Decimal `gorm:"type:numeric;not null" json:"target_percent"`
	GapPercent    decimal.Decimal `gorm:"type:numeric;not null" json:"gap_percent"`

	HoldingCount int `gorm:"not null;default:0" json:"holding_count"`
}
