package models

// All returns every model for auto-migration, leaves first so foreign keys
// resolve in order.
func All() []interface{} {
	return []interface{}{
		&DataType{},
		&ConstraintType{},
		&Formula{},
		&FXCurrency{},
		&FXRate{},
		&Asset{},
		&AssetPrice{},
		&EquityDetail{},
		&CryptoDetail{},
		&CommodityDetail{},
		&BondDetail{},
		&RealEstateDetail{},
		&CustomDetail{},
		&SnapshotPointer{},
		&Portfolio{},
		&Account{},
		&Holding{},
		&ColumnVisibility{},
		&Schema{},
		&SchemaColumn{},
		&SchemaColumnValue{},
		&AllocationScenario{},
		&AllocationDimension{},
		&AllocationTarget{},
		&AllocationRun{},
		&AllocationGapResult{},
		&Analytic{},
		&AnalyticDimension{},
		&DimensionWeight{},
		&AnalyticRun{},
		&AnalyticResult{},
	}
}
