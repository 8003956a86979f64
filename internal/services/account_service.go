package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
	"finpro/internal/validator"
)

type accountService struct {
	db      *gorm.DB
	recalc  RecalcServicer
	schemas SchemaServicer
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, recalc RecalcServicer, schemas SchemaServicer) AccountServicer {
	return &accountService{db: db, recalc: recalc, schemas: schemas}
}

// CreateAccount creates an account in the given portfolio.
func (s *accountService) CreateAccount(portfolioID, name string, accType models.AccountType, mode models.AccountMode, currency string) (*models.Account, error) {
	if err := validator.Var(string(accType), "required,account_type"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation, "Invalid account type %q", accType)
	}
	if err := validator.Var(string(mode), "required,account_mode"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrInvalidAccountMode, "Invalid account mode %q", mode)
	}
	if currency == "" {
		currency = "USD"
	}
	if err := validator.Var(currency, "iso4217"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation, "Invalid currency code %q", currency)
	}

	var portfolio models.Portfolio
	if err := s.db.First(&portfolio, "id = ?", portfolioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account := models.Account{
		PortfolioID: portfolioID,
		Name:        name,
		Type:        accType,
		Mode:        mode,
		Currency:    currency,
	}
	if err := s.db.Create(&account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetAccountByID loads an account with its holdings.
func (s *accountService) GetAccountByID(accountID string) (*models.Account, error) {
	var account models.Account
	err := s.db.Preload("Holdings").Preload("Holdings.Asset").
		First(&account, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// AddHolding attaches an asset to a self-managed account and computes its
// column values. Managed accounts carry aggregates, not holdings.
func (s *accountService) AddHolding(accountID, assetID string, quantity, purchasePrice decimal.Decimal) (*models.Holding, error) {
	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.Mode != models.AccountModeSelfManaged {
		return nil, apperrors.WithMessage(apperrors.ErrHoldingNotAllowed,
			"Holdings can only be added to self-managed accounts")
	}
	if quantity.Sign() <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "Quantity must be positive")
	}

	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holding := models.Holding{
		AccountID:      accountID,
		AssetID:        assetID,
		Quantity:       quantity,
		PurchasePrice:  purchasePrice,
		OriginalSymbol: asset.Symbol,
	}
	if err := s.db.Create(&holding).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holding.Account = *account
	holding.Asset = asset
	s.recalc.HoldingChanged(&holding)
	return &holding, nil
}

// SwitchMode switches an account between self-managed and managed. Switching
// away from self-managed deletes the account's holdings and their column
// values; switching away from managed clears the aggregate figures. Either
// direction is destructive when data exists, so the caller must pass force.
func (s *accountService) SwitchMode(accountID string, newMode models.AccountMode, force bool) (*models.Account, error) {
	if err := validator.Var(string(newMode), "required,account_mode"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrInvalidAccountMode, "Invalid account mode %q", newMode)
	}

	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.Mode == newMode {
		return account, nil
	}

	destructive := false
	if account.Mode == models.AccountModeSelfManaged && len(account.Holdings) > 0 {
		destructive = true
	}
	if account.Mode == models.AccountModeManaged &&
		(account.CurrentValue != nil || account.InvestedAmount != nil || account.Strategy != nil) {
		destructive = true
	}
	if destructive && !force {
		return nil, apperrors.WithMessage(apperrors.ErrModeSwitchBlocked,
			"Switching mode discards existing account data; pass force to confirm")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if account.Mode == models.AccountModeSelfManaged {
			holdingIDs := make([]string, len(account.Holdings))
			for i, h := range account.Holdings {
				holdingIDs[i] = h.ID
			}
			if len(holdingIDs) > 0 {
				if err := tx.Where("holding_id IN ?", holdingIDs).
					Delete(&models.SchemaColumnValue{}).Error; err != nil {
					return err
				}
				if err := tx.Where("account_id = ?", accountID).
					Delete(&models.Holding{}).Error; err != nil {
					return err
				}
			}
		} else {
			updates := map[string]interface{}{
				"current_value":   nil,
				"invested_amount": nil,
				"strategy":        nil,
			}
			if err := tx.Model(&models.Account{}).Where("id = ?", accountID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Account{}).Where("id = ?", accountID).
			Update("mode", newMode).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// The new mode may use a different schema, so visibility rows are
	// rebuilt against it. The switch itself has already committed.
	if err := s.schemas.InitVisibility(accountID); err != nil {
		logger.Get().Warnw("failed to rebuild column visibility after mode switch",
			"account_id", accountID, "error", err)
	}

	logger.Get().Infow("account mode switched",
		"account_id", accountID, "from", account.Mode, "to", newMode, "destructive", destructive)
	return s.GetAccountByID(accountID)
}
