package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
	"finpro/internal/validator"
)

type fxService struct {
	db     *gorm.DB
	market MarketData
	recalc RecalcServicer
}

// NewFXService creates a new FXServicer.
func NewFXService(db *gorm.DB, market MarketData, recalc RecalcServicer) FXServicer {
	return &fxService{db: db, market: market, recalc: recalc}
}

// SyncCurrencies upserts the currency list from the provider's FX universe.
// Returns the number of currencies created.
func (s *fxService) SyncCurrencies(ctx context.Context) (int, error) {
	rows, err := s.market.FXUniverse(ctx)
	if err != nil {
		return 0, err
	}

	type entry struct{ code, name string }
	seen := map[string]entry{}
	for _, r := range rows {
		for _, e := range []entry{{r.FromCode, r.FromName}, {r.ToCode, r.ToName}} {
			code := strings.ToUpper(strings.TrimSpace(e.code))
			if len(code) != 3 {
				continue
			}
			if _, ok := seen[code]; !ok {
				seen[code] = entry{code, e.name}
			}
		}
	}

	created := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, e := range seen {
			row := models.FXCurrency{Code: e.code, Name: e.name}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return res.Error
			}
			created += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("fx currencies synced", "known", len(seen), "created", created)
	return created, nil
}

// SyncRate fetches and stores the rate for one pair, then triggers
// recalculation of holdings quoted in the source currency.
func (s *fxService) SyncRate(ctx context.Context, from, to string) (*models.FXRate, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if err := validator.Var(from, "iso4217"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation, "Invalid currency code %q", from)
	}
	if err := validator.Var(to, "iso4217"); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation, "Invalid currency code %q", to)
	}

	row, err := s.market.FXQuote(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if row.Rate.Sign() <= 0 {
		return nil, apperrors.WithMessagef(apperrors.ErrInvalidResponse,
			"Provider returned a non-positive rate for %s/%s", from, to)
	}

	rate := models.FXRate{
		FromCode: from,
		ToCode:   to,
		Rate:     row.Rate,
		QuotedAt: time.Now().UTC(),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "from_code"}, {Name: "to_code"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"rate":      row.Rate,
			"quoted_at": rate.QuotedAt,
		}),
	}).Create(&rate).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Recalculation runs after the rate is committed so formulas read the
	// new value.
	s.recalc.FXChanged(from)
	return &rate, nil
}
