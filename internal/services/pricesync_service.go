package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
)

// SyncResult summarizes a price refresh run.
type SyncResult struct {
	Class   models.AssetClass `json:"class"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
}

type priceSyncService struct {
	db     *gorm.DB
	market MarketData
	recalc RecalcServicer
}

// NewPriceSyncService creates a new PriceSyncServicer.
func NewPriceSyncService(db *gorm.DB, market MarketData, recalc RecalcServicer) PriceSyncServicer {
	return &priceSyncService{db: db, market: market, recalc: recalc}
}

// SyncSymbol fetches and stores the current price for one symbol in the
// class's active snapshot. Unknown symbols are reported, not ignored, so a
// caller syncing a single symbol learns when it got nothing.
func (s *priceSyncService) SyncSymbol(ctx context.Context, class models.AssetClass, symbol string) error {
	snapshotID, err := s.activeSnapshot(class)
	if err != nil {
		return err
	}

	var asset models.Asset
	err = s.db.Where("class = ? AND symbol = ? AND snapshot_id = ?", class, symbol, snapshotID).
		First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.WithMessagef(apperrors.ErrUnknownSymbol,
			"Symbol %q is not in the active %s universe", symbol, class)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	quote, err := s.market.Quote(ctx, symbol)
	if err != nil {
		return err
	}

	if err := s.storePrice(asset.ID, quote.Price); err != nil {
		return err
	}
	s.recalc.AssetChanged(asset.ID)
	return nil
}

// RefreshClass refreshes prices for every asset in the class's active
// snapshot that is currently held. A failed quote counts as failed and the
// run continues; held assets without a fresh price keep their last value.
func (s *priceSyncService) RefreshClass(ctx context.Context, class models.AssetClass) (*SyncResult, error) {
	snapshotID, err := s.activeSnapshot(class)
	if err != nil {
		return nil, err
	}

	var assets []models.Asset
	err = s.db.Distinct("assets.*").
		Joins("JOIN holdings ON holdings.asset_id = assets.id").
		Where("assets.class = ? AND assets.snapshot_id = ?", class, snapshotID).
		Find(&assets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Get()
	result := &SyncResult{Class: class}
	for i := range assets {
		quote, err := s.market.Quote(ctx, assets[i].Symbol)
		if err != nil {
			log.Warnw("price refresh failed for symbol",
				"class", class, "symbol", assets[i].Symbol, "error", err)
			result.Failed++
			continue
		}
		if err := s.storePrice(assets[i].ID, quote.Price); err != nil {
			result.Failed++
			continue
		}
		s.recalc.AssetChanged(assets[i].ID)
		result.Updated++
	}
	log.Infow("price refresh finished",
		"class", class, "updated", result.Updated, "failed", result.Failed)
	return result, nil
}

func (s *priceSyncService) activeSnapshot(class models.AssetClass) (string, error) {
	var ptr models.SnapshotPointer
	err := s.db.First(&ptr, "class = ?", class).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && ptr.CurrentSnapshotID == "") {
		return "", apperrors.WithMessagef(apperrors.ErrNoActiveSnapshot,
			"Class %q has never been seeded", class)
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ptr.CurrentSnapshotID, nil
}

func (s *priceSyncService) storePrice(assetID string, price decimal.Decimal) error {
	row := models.AssetPrice{
		AssetID:  assetID,
		Price:    price,
		Source:   s.market.Name(),
		QuotedAt: time.Now().UTC(),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asset_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"price":     price,
			"source":    s.market.Name(),
			"quoted_at": row.QuotedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
