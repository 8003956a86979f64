package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
)

// recalcService fans domain change events out to targeted recomputation.
// Recalculation is best-effort: a failure for one holding is logged and the
// rest of the batch still runs, so a single broken formula cannot wedge a
// price sync or an FX update.
type recalcService struct {
	db       *gorm.DB
	resolver ColumnResolverServicer
}

// NewRecalcService creates a new RecalcServicer.
func NewRecalcService(db *gorm.DB, resolver ColumnResolverServicer) RecalcServicer {
	return &recalcService{db: db, resolver: resolver}
}

// HoldingChanged recomputes every column for a single holding.
func (s *recalcService) HoldingChanged(holding *models.Holding) {
	log := logger.Get()

	schema, err := s.schemaForHolding(holding)
	if err != nil {
		log.Warnw("recalc skipped, no schema for holding", "holding_id", holding.ID, "error", err)
		return
	}
	if _, err := s.resolver.Resolve(holding, schema); err != nil {
		log.Warnw("recalc failed for holding", "holding_id", holding.ID, "error", err)
	}
}

// HoldingsChanged recomputes a batch of holdings, continuing past failures.
func (s *recalcService) HoldingsChanged(holdings []models.Holding) {
	for i := range holdings {
		s.HoldingChanged(&holdings[i])
	}
}

// AssetChanged recomputes every holding that references the asset. Called
// after a price update or an asset relink.
func (s *recalcService) AssetChanged(assetID string) {
	var holdings []models.Holding
	if err := s.db.Preload("Asset").Preload("Asset.Price").
		Where("asset_id = ?", assetID).Find(&holdings).Error; err != nil {
		logger.Get().Errorw("recalc could not load holdings for asset", "asset_id", assetID, "error", err)
		return
	}
	s.HoldingsChanged(holdings)
}

// FXChanged recomputes holdings whose asset is quoted in the given currency.
func (s *recalcService) FXChanged(currencyCode string) {
	var holdings []models.Holding
	err := s.db.Preload("Asset").Preload("Asset.Price").
		Joins("JOIN assets ON assets.id = holdings.asset_id").
		Where("assets.currency = ?", currencyCode).
		Find(&holdings).Error
	if err != nil {
		logger.Get().Errorw("recalc could not load holdings for currency", "currency", currencyCode, "error", err)
		return
	}
	s.HoldingsChanged(holdings)
}

// SchemaChanged recomputes every holding governed by the schema. Used after
// column or formula edits.
func (s *recalcService) SchemaChanged(schema *models.Schema) {
	var holdings []models.Holding
	err := s.db.Preload("Asset").Preload("Asset.Price").
		Joins("JOIN accounts ON accounts.id = holdings.account_id").
		Where("accounts.type = ? AND accounts.mode = ?", schema.AccountType, schema.Mode).
		Find(&holdings).Error
	if err != nil {
		logger.Get().Errorw("recalc could not load holdings for schema", "schema_id", schema.ID, "error", err)
		return
	}
	for i := range holdings {
		if _, err := s.resolver.Resolve(&holdings[i], schema); err != nil {
			logger.Get().Warnw("recalc failed for holding", "holding_id", holdings[i].ID, "error", err)
		}
	}
}

// schemaForHolding finds the latest schema version for the holding's account
// type and mode.
func (s *recalcService) schemaForHolding(holding *models.Holding) (*models.Schema, error) {
	account := holding.Account
	if account.ID == "" {
		if err := s.db.First(&account, "id = ?", holding.AccountID).Error; err != nil {
			return nil, err
		}
	}
	return activeSchema(s.db, account.Type, account.Mode)
}

// activeSchema returns the highest-version schema for an account type+mode.
func activeSchema(db *gorm.DB, accType models.AccountType, mode models.AccountMode) (*models.Schema, error) {
	var schema models.Schema
	err := db.Where("account_type = ? AND mode = ?", accType, mode).
		Order("version DESC").First(&schema).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrSchemaNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &schema, nil
}
