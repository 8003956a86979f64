package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
	"finpro/internal/uuid"
)

// SeedResult summarizes one seeding run.
type SeedResult struct {
	Class      models.AssetClass `json:"class"`
	SnapshotID string            `json:"snapshot_id"`
	Created    int               `json:"created"`
	Skipped    int               `json:"skipped"`
	Relinked   int               `json:"relinked"`
	Converted  int               `json:"converted"`
}

// seederService runs the snapshot-based reference data pipeline.
//
// A run proceeds in phases: fetch the universe from the provider (no
// transaction held), build the new generation of assets inside a
// transaction, then activate it by swapping the class's snapshot pointer.
// The swap is the only step readers observe, so a failed build leaves the
// previous generation untouched.
type seederService struct {
	db        *gorm.DB
	market    MarketData
	recalc    RecalcServicer
	retention int
}

// NewSeederService creates a new SeederServicer. retention is how many past
// snapshot generations Cleanup keeps per class.
func NewSeederService(db *gorm.DB, market MarketData, recalc RecalcServicer, retention int) SeederServicer {
	if retention < 1 {
		retention = 1
	}
	return &seederService{db: db, market: market, recalc: recalc, retention: retention}
}

// ActiveSnapshotID returns the current snapshot for a class, or
// ErrNoActiveSnapshot before the first seed.
func (s *seederService) ActiveSnapshotID(class models.AssetClass) (string, error) {
	var ptr models.SnapshotPointer
	err := s.db.First(&ptr, "class = ?", class).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.ErrNoActiveSnapshot
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if ptr.CurrentSnapshotID == "" {
		return "", apperrors.ErrNoActiveSnapshot
	}
	return ptr.CurrentSnapshotID, nil
}

// Seed builds and activates a new snapshot for the class. Running it twice
// in a row is safe: the second run builds a fresh generation and the old one
// ages out through Cleanup.
func (s *seederService) Seed(ctx context.Context, class models.AssetClass) (*SeedResult, error) {
	log := logger.Get()
	snapshotID := uuid.New()

	assets, err := s.fetchUniverse(ctx, class, snapshotID)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Class: class, SnapshotID: snapshotID}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool, len(assets))
		for i := range assets {
			// Rows missing a mandatory identifying field are skipped,
			// never fatal to the run.
			if assets[i].Symbol == "" || assets[i].Currency == "" || seen[assets[i].Symbol] {
				result.Skipped++
				continue
			}
			seen[assets[i].Symbol] = true
			if err := tx.Create(&assets[i]).Error; err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Activation is its own short transaction: a single pointer swap.
	previousID, _ := s.ActiveSnapshotID(class)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var ptr models.SnapshotPointer
		err := tx.First(&ptr, "class = ?", class).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.SnapshotPointer{Class: class, CurrentSnapshotID: snapshotID}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&ptr).Update("current_snapshot_id", snapshotID).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if previousID != "" {
		relinked, converted, err := s.relinkHoldings(class, previousID, snapshotID)
		if err != nil {
			return nil, err
		}
		result.Relinked = relinked
		result.Converted = converted
	}

	log.Infow("snapshot seeded",
		"class", class, "snapshot_id", snapshotID,
		"created", result.Created, "skipped", result.Skipped,
		"relinked", result.Relinked, "converted", result.Converted)
	return result, nil
}

// Cleanup deletes assets from snapshot generations older than the retention
// window. Assets still referenced by holdings were already relinked or
// converted to custom, so stale generations carry no live references.
func (s *seederService) Cleanup(class models.AssetClass) (int, error) {
	activeID, err := s.ActiveSnapshotID(class)
	if err != nil {
		return 0, err
	}

	// Collect the most recent generations by creation time.
	var keepIDs []string
	err = s.db.Model(&models.Asset{}).
		Select("snapshot_id").
		Where("class = ? AND snapshot_id <> ''", class).
		Group("snapshot_id").
		Order("MAX(created_at) DESC, snapshot_id DESC").
		Limit(s.retention).
		Pluck("snapshot_id", &keepIDs).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	keep := map[string]bool{activeID: true}
	for _, id := range keepIDs {
		keep[id] = true
	}

	var staleIDs []string
	err = s.db.Model(&models.Asset{}).
		Where("class = ? AND snapshot_id <> ''", class).
		Distinct("snapshot_id").
		Pluck("snapshot_id", &staleIDs).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	deleted := 0
	for _, id := range staleIDs {
		if keep[id] {
			continue
		}
		n, err := s.deleteSnapshot(class, id)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

func (s *seederService) deleteSnapshot(class models.AssetClass, snapshotID string) (int, error) {
	var assetIDs []string
	err := s.db.Model(&models.Asset{}).
		Where("class = ? AND snapshot_id = ?", class, snapshotID).
		Pluck("id", &assetIDs).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(assetIDs) == 0 {
		return 0, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.AssetPrice{}, &models.EquityDetail{}, &models.CryptoDetail{},
			&models.CommodityDetail{}, &models.BondDetail{}, &models.RealEstateDetail{},
		} {
			if err := tx.Where("asset_id IN ?", assetIDs).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id IN ?", assetIDs).Delete(&models.Asset{}).Error
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return len(assetIDs), nil
}

// relinkHoldings moves holdings from the previous generation onto matching
// assets in the new one. Holdings whose symbol vanished from the universe
// keep their asset, which is converted in place to a custom asset so the
// position survives the reseed.
func (s *seederService) relinkHoldings(class models.AssetClass, previousID, snapshotID string) (int, int, error) {
	var holdings []models.Holding
	err := s.db.Preload("Asset").Preload("Account").
		Joins("JOIN assets ON assets.id = holdings.asset_id").
		Where("assets.class = ? AND assets.snapshot_id = ?", class, previousID).
		Find(&holdings).Error
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(holdings) == 0 {
		return 0, 0, nil
	}

	relinked, converted := 0, 0
	var touched []models.Holding
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range holdings {
			h := &holdings[i]
			symbol := h.OriginalSymbol
			if symbol == "" {
				symbol = h.Asset.Symbol
			}

			var replacement models.Asset
			findErr := tx.Where("class = ? AND symbol = ? AND snapshot_id = ?",
				class, symbol, snapshotID).First(&replacement).Error
			switch {
			case findErr == nil:
				if err := tx.Model(h).Update("asset_id", replacement.ID).Error; err != nil {
					return err
				}
				relinked++
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				if err := s.convertToCustom(tx, h); err != nil {
					return err
				}
				converted++
			default:
				return findErr
			}
			touched = append(touched, *h)
		}
		return nil
	})
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.recalc.HoldingsChanged(touched)
	return relinked, converted, nil
}

// convertToCustom detaches the holding's asset from the seeded universe and
// reclassifies it as a portfolio-owned custom asset.
func (s *seederService) convertToCustom(tx *gorm.DB, h *models.Holding) error {
	var account models.Account
	if h.Account.ID != "" {
		account = h.Account
	} else if err := tx.First(&account, "id = ?", h.AccountID).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"class":       models.AssetClassCustom,
		"snapshot_id": "",
	}
	if err := tx.Model(&models.Asset{}).Where("id = ?", h.AssetID).Updates(updates).Error; err != nil {
		return err
	}

	detail := models.CustomDetail{
		AssetID:     h.AssetID,
		PortfolioID: account.PortfolioID,
		Reason:      models.CustomReasonMarket,
	}
	return tx.Create(&detail).Error
}

// fetchUniverse pulls the provider universe for a class and maps rows to
// asset records tagged with the new snapshot.
func (s *seederService) fetchUniverse(ctx context.Context, class models.AssetClass, snapshotID string) ([]models.Asset, error) {
	switch class {
	case models.AssetClassEquity:
		rows, err := s.market.EquityUniverse(ctx)
		if err != nil {
			return nil, err
		}
		assets := make([]models.Asset, 0, len(rows))
		for _, r := range rows {
			assets = append(assets, models.Asset{
				Class:      class,
				Symbol:     r.Symbol,
				Name:       r.Name,
				Currency:   r.Currency,
				SnapshotID: snapshotID,
				EquityDetail: &models.EquityDetail{
					Exchange: r.Exchange,
					Sector:   r.Sector,
					Industry: r.Industry,
					Country:  r.Country,
					ISIN:     r.ISIN,
					CUSIP:    r.CUSIP,
				},
			})
		}
		return assets, nil

	case models.AssetClassCrypto:
		rows, err := s.market.CryptoUniverse(ctx)
		if err != nil {
			return nil, err
		}
		assets := make([]models.Asset, 0, len(rows))
		for _, r := range rows {
			detail := &models.CryptoDetail{
				BaseSymbol:        r.BaseSymbol,
				PairSymbol:        r.PairSymbol,
				CirculatingSupply: r.CirculatingSupply,
				TotalSupply:       r.TotalSupply,
			}
			if r.ICODate != "" {
				if t, err := time.Parse("2006-01-02", r.ICODate); err == nil {
					detail.ICODate = &t
				}
			}
			assets = append(assets, models.Asset{
				Class:        class,
				Symbol:       r.PairSymbol,
				Name:         r.Name,
				Currency:     r.CurrencyCode,
				SnapshotID:   snapshotID,
				CryptoDetail: detail,
			})
		}
		return assets, nil

	case models.AssetClassCommodity:
		rows, err := s.market.CommodityUniverse(ctx)
		if err != nil {
			return nil, err
		}
		assets := make([]models.Asset, 0, len(rows))
		for _, r := range rows {
			assets = append(assets, models.Asset{
				Class:      class,
				Symbol:     r.Symbol,
				Name:       r.Name,
				Currency:   r.Currency,
				SnapshotID: snapshotID,
				CommodityDetail: &models.CommodityDetail{
					Category: r.Category,
					Unit:     r.Unit,
				},
			})
		}
		return assets, nil
	}
	return nil, apperrors.WithMessagef(apperrors.ErrInvalidInput, "Asset class %q is not seedable", class)
}
