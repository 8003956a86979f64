package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/models"
	"finpro/internal/pagination"
	"finpro/internal/validator"
)

type assetService struct {
	db     *gorm.DB
	seeder SeederServicer
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB, seeder SeederServicer) AssetServicer {
	return &assetService{db: db, seeder: seeder}
}

// GetBySymbol looks a symbol up in the class's active snapshot.
func (s *assetService) GetBySymbol(class models.AssetClass, symbol string) (*models.Asset, error) {
	snapshotID, err := s.seeder.ActiveSnapshotID(class)
	if err != nil {
		return nil, err
	}

	var asset models.Asset
	err = s.db.Preload("Price").
		Where("class = ? AND symbol = ? AND snapshot_id = ?", class, symbol, snapshotID).
		First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WithMessagef(apperrors.ErrUnknownSymbol,
			"Symbol %q is not in the active %s universe", symbol, class)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// Search pages through the active snapshot of a class, optionally filtering
// by a symbol or name substring.
func (s *assetService) Search(class models.AssetClass, query string, req pagination.PageRequest) (pagination.PageResponse[models.Asset], error) {
	var empty pagination.PageResponse[models.Asset]

	snapshotID, err := s.seeder.ActiveSnapshotID(class)
	if err != nil {
		return empty, err
	}
	req.Defaults()

	scope := s.db.Model(&models.Asset{}).
		Where("class = ? AND snapshot_id = ?", class, snapshotID)
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToUpper(query) + "%"
		scope = scope.Where("(UPPER(symbol) LIKE ? OR UPPER(name) LIKE ?)", like, like)
	}

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return empty, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var assets []models.Asset
	if err := scope.Order("symbol ASC").
		Scopes(pagination.Paginate(req)).
		Find(&assets).Error; err != nil {
		return empty, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return pagination.NewPageResponse(assets, req.Page, req.PageSize, total), nil
}

// CreateCustomAsset registers a user-defined asset owned by a portfolio.
// Custom assets live outside the snapshot pipeline and are never reseeded.
func (s *assetService) CreateCustomAsset(portfolioID, symbol, name, currency string) (*models.Asset, error) {
	if currency == "" {
		currency = "USD"
	}
	if err := validator.Var(currency, "iso4217"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation, "Invalid currency code %q", currency)
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "Asset name is required")
	}

	var count int64
	err := s.db.Model(&models.Asset{}).
		Joins("JOIN custom_details ON custom_details.asset_id = assets.id").
		Where("assets.class = ? AND assets.symbol = ? AND custom_details.portfolio_id = ?",
			models.AssetClassCustom, symbol, portfolioID).
		Count(&count).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessagef(apperrors.ErrDuplicateAsset,
			"Custom asset %q already exists in this portfolio", symbol)
	}

	asset := &models.Asset{
		Class:    models.AssetClassCustom,
		Symbol:   symbol,
		Name:     name,
		Currency: currency,
		CustomDetail: &models.CustomDetail{
			PortfolioID: portfolioID,
			Reason:      models.CustomReasonUser,
		},
	}
	if err := s.db.Create(asset).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return asset, nil
}
