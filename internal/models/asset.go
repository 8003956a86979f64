package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass identifies which universe an asset belongs to.
type AssetClass string

const (
	AssetClassEquity     AssetClass = "equity"
	AssetClassCrypto     AssetClass = "crypto"
	AssetClassCommodity  AssetClass = "commodity"
	AssetClassBond       AssetClass = "bond"
	AssetClassRealEstate AssetClass = "real_estate"
	AssetClassCustom     AssetClass = "custom"
)

// SeededClasses are the asset classes refreshed by the snapshot pipeline.
// Custom assets are user-owned and never touched by seeding.
var SeededClasses = []AssetClass{AssetClassEquity, AssetClassCrypto, AssetClassCommodity}

// Asset is the canonical reference entity: one row per real-world tradable
// or ownable thing. Seeded assets are tagged with the snapshot that created
// them; custom assets carry an empty SnapshotID and an owner.
type Asset struct {
	Base
	Class    AssetClass `gorm:"not null;index;uniqueIndex:uq_assets_class_symbol_snapshot" json:"class"`
	Symbol   string     `gorm:"index;uniqueIndex:uq_assets_class_symbol_snapshot" json:"symbol"`
	Name     string     `gorm:"not null" json:"name"`
	Currency string     `gorm:"not null;default:'USD'" json:"currency"`

	// SnapshotID tags the seeding generation this row belongs to.
	SnapshotID string `gorm:"type:uuid;index;uniqueIndex:uq_assets_class_symbol_snapshot" json:"snapshot_id"`

	// Extensions. At most one is present, matching Class.
	EquityDetail     *EquityDetail     `gorm:"foreignKey:AssetID" json:"equity_detail,omitempty"`
	CryptoDetail     *CryptoDetail     `gorm:"foreignKey:AssetID" json:"crypto_detail,omitempty"`
	CommodityDetail  *CommodityDetail  `gorm:"foreignKey:AssetID" json:"commodity_detail,omitempty"`
	BondDetail       *BondDetail       `gorm:"foreignKey:AssetID" json:"bond_detail,omitempty"`
	RealEstateDetail *RealEstateDetail `gorm:"foreignKey:AssetID" json:"real_estate_detail,omitempty"`
	CustomDetail     *CustomDetail     `gorm:"foreignKey:AssetID" json:"custom_detail,omitempty"`

	Price    *AssetPrice `gorm:"foreignKey:AssetID" json:"price,omitempty"`
	Holdings []Holding   `gorm:"foreignKey:AssetID" json:"holdings,omitempty"`
}

// AssetPrice holds the latest known price for an asset, updated in place.
type AssetPrice struct {
	Base
	AssetID   string          `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	Price     decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	Source    string          `json:"source"`
	QuotedAt  time.Time       `gorm:"not null" json:"quoted_at"`
}

// EquityDetail extends an equity asset with exchange and classification data.
type EquityDetail struct {
	Base
	AssetID  string `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
	Country  string `json:"country"`
	ISIN     string `json:"isin"`
	CUSIP    string `json:"cusip"`
}

// CryptoDetail extends a crypto asset with pair and supply data.
type CryptoDetail struct {
	Base
	AssetID           string          `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	BaseSymbol        string          `gorm:"not null" json:"base_symbol"`
	PairSymbol        string          `gorm:"not null;index" json:"pair_symbol"`
	CirculatingSupply decimal.Decimal `gorm:"type:numeric" json:"circulating_supply"`
	TotalSupply       decimal.Decimal `gorm:"type:numeric" json:"total_supply"`
	ICODate           *time.Time      `json:"ico_date,omitempty"`
}

// CommodityDetail extends a commodity asset (metals, energy).
type CommodityDetail struct {
	Base
	AssetID  string `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	Category string `json:"category"` // e.g. precious_metal, energy
	Unit     string `json:"unit"`     // e.g. troy_ounce, barrel
}

// BondDetail extends a bond asset.
type BondDetail struct {
	Base
	AssetID         string          `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	Issuer          string          `json:"issuer"`
	MaturityDate    *time.Time      `json:"maturity_date,omitempty"`
	CouponRate      decimal.Decimal `gorm:"type:numeric" json:"coupon_rate"`
	YieldToMaturity decimal.Decimal `gorm:"type:numeric" json:"yield_to_maturity"`
}

// RealEstateDetail extends a real estate asset.
type RealEstateDetail struct {
	Base
	AssetID      string `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	PropertyType string `json:"property_type"`
	Country      string `json:"country"`
	City         string `json:"city"`
}

// CustomDetailReason records why a custom asset exists.
type CustomDetailReason string

const (
	// CustomReasonUser marks assets the user created directly.
	CustomReasonUser CustomDetailReason = "user"
	// CustomReasonMarket marks assets converted from a seeded asset that
	// disappeared from the active universe while holdings still referenced it.
	CustomReasonMarket CustomDetailReason = "market"
)

// CustomDetail extends a user-defined asset. Custom assets are owned by a
// portfolio and are never created or refreshed by the snapshot pipeline.
type CustomDetail struct {
	Base
	AssetID     string             `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	PortfolioID string             `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	Reason      CustomDetailReason `gorm:"not null;default:'user'" json:"reason"`
}

// SnapshotPointer is the singleton active-snapshot row for one asset class.
// Swapping CurrentSnapshotID is the sole atomic activation step of the
// seeding pipeline.
type SnapshotPointer struct {
	Base
	Class             AssetClass `gorm:"not null;uniqueIndex" json:"class"`
	CurrentSnapshotID string     `gorm:"type:uuid" json:"current_snapshot_id"`
}
