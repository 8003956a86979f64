package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "finpro/internal/errors"
)

// FMPClient fetches reference data and quotes from a Financial Modeling
// Prep style REST API.
type FMPClient struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	apiKey     string
	guard      *Guard
}

// NewFMPClient creates a provider client with the given base URL, API key
// and request timeout. A stuck call fails closed after the timeout rather
// than blocking indefinitely.
func NewFMPClient(baseURL, apiKey string, timeout time.Duration) *FMPClient {
	return &FMPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		guard:      NewGuard("FMP"),
	}
}

// Name returns the provider's display name.
func (c *FMPClient) Name() string { return "FMP" }

// getJSON performs a GET request and decodes the body into out.
// It guarantees a typed error: network failures and 5xx map to
// PROVIDER_UNAVAILABLE, 429 to RATE_LIMITED, everything else unexpected to
// INVALID_RESPONSE.
func (c *FMPClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.guard.Do(func() error {
		if query == nil {
			query = url.Values{}
		}
		if c.apiKey != "" {
			query.Set("apikey", c.apiKey)
		}
		endpoint := c.baseURL + path
		if encoded := query.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidResponse, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperrors.WithMessage(apperrors.ErrProviderUnavailable,
				"Network error while contacting provider")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return apperrors.ErrRateLimited
		case resp.StatusCode >= 500:
			return apperrors.WithMessagef(apperrors.ErrProviderUnavailable,
				"Provider server error (%d)", resp.StatusCode)
		case resp.StatusCode >= 400:
			return apperrors.WithMessagef(apperrors.ErrInvalidResponse,
				"Unexpected client error (%d)", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.WithMessage(apperrors.ErrProviderUnavailable,
				"Network error while reading provider response")
		}

		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidResponse,
				"Response contained invalid JSON")
		}
		return nil
	})
}

// fmpListRow covers the provider's flat list payloads; unknown fields are ignored.
type fmpListRow struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Currency          string   `json:"currency"`
	Exchange          string   `json:"exchangeShortName"`
	Sector            string   `json:"sector"`
	Industry          string   `json:"industry"`
	Country           string   `json:"country"`
	ISIN              string   `json:"isin"`
	CUSIP             string   `json:"cusip"`
	CirculatingSupply *float64 `json:"circulatingSupply"`
	TotalSupply       *float64 `json:"totalSupply"`
	ICODate           string   `json:"icoDate"`
	Price             *float64 `json:"price"`
	Volume            *int64   `json:"volume"`
}

// EquityUniverse fetches the full tradable equity list.
func (c *FMPClient) EquityUniverse(ctx context.Context) ([]EquityRow, error) {
	var raw []fmpListRow
	if err := c.getJSON(ctx, "/stock/list", nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrEmptyResult, "Equity universe is empty")
	}

	rows := make([]EquityRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, EquityRow{
			Symbol:   strings.ToUpper(r.Symbol),
			Name:     r.Name,
			Currency: strings.ToUpper(r.Currency),
			Exchange: r.Exchange,
			Sector:   r.Sector,
			Industry: r.Industry,
			Country:  r.Country,
			ISIN:     r.ISIN,
			CUSIP:    r.CUSIP,
		})
	}
	return rows, nil
}

// CryptoUniverse fetches the full crypto pair list.
func (c *FMPClient) CryptoUniverse(ctx context.Context) ([]CryptoRow, error) {
	var raw []fmpListRow
	if err := c.getJSON(ctx, "/symbol/available-cryptocurrencies", nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrEmptyResult, "Crypto universe is empty")
	}

	rows := make([]CryptoRow, 0, len(raw))
	for _, r := range raw {
		pair := strings.ToUpper(r.Symbol)
		currency := strings.ToUpper(r.Currency)
		rows = append(rows, CryptoRow{
			PairSymbol:        pair,
			BaseSymbol:        strings.TrimSuffix(pair, currency),
			Name:              r.Name,
			CurrencyCode:      currency,
			CirculatingSupply: optionalDecimal(r.CirculatingSupply),
			TotalSupply:       optionalDecimal(r.TotalSupply),
			ICODate:           r.ICODate,
		})
	}
	return rows, nil
}

// CommodityUniverse fetches the available commodity list.
func (c *FMPClient) CommodityUniverse(ctx context.Context) ([]CommodityRow, error) {
	var raw []fmpListRow
	if err := c.getJSON(ctx, "/symbol/available-commodities", nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrEmptyResult, "Commodity universe is empty")
	}

	rows := make([]CommodityRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, CommodityRow{
			Symbol:   strings.ToUpper(r.Symbol),
			Name:     r.Name,
			Currency: strings.ToUpper(r.Currency),
			Category: commodityCategory(r.Name),
			Unit:     "unit",
		})
	}
	return rows, nil
}

// Quote fetches the current price for a single symbol.
func (c *FMPClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	var raw []fmpListRow
	path := fmt.Sprintf("/quote/%s", url.PathEscape(strings.ToUpper(symbol)))
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return Quote{}, err
	}
	if len(raw) == 0 {
		return Quote{}, apperrors.WithMessagef(apperrors.ErrEmptyResult,
			"No quote returned for %q", symbol)
	}

	r := raw[0]
	if r.Price == nil {
		return Quote{}, apperrors.WithMessagef(apperrors.ErrInvalidResponse,
			"Quote for %q is missing a price", symbol)
	}
	q := Quote{Symbol: strings.ToUpper(r.Symbol), Price: decimal.NewFromFloat(*r.Price)}
	if r.Volume != nil {
		q.Volume = *r.Volume
	}
	return q, nil
}

type fmpFXRow struct {
	From     string   `json:"fromCurrency"`
	FromName string   `json:"fromName"`
	To       string   `json:"toCurrency"`
	ToName   string   `json:"toName"`
	Rate     *float64 `json:"rate"`
}

// FXUniverse fetches the known currency pairs.
func (c *FMPClient) FXUniverse(ctx context.Context) ([]FXRow, error) {
	var raw []fmpFXRow
	if err := c.getJSON(ctx, "/symbol/available-forex-currency-pairs", nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrEmptyResult, "FX universe is empty")
	}

	rows := make([]FXRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, FXRow{
			FromCode: strings.ToUpper(r.From),
			FromName: r.FromName,
			ToCode:   strings.ToUpper(r.To),
			ToName:   r.ToName,
			Rate:     optionalDecimal(r.Rate),
		})
	}
	return rows, nil
}

// FXQuote fetches the current rate for a single pair.
func (c *FMPClient) FXQuote(ctx context.Context, from, to string) (FXRow, error) {
	var raw []fmpFXRow
	path := fmt.Sprintf("/fx/%s%s", url.PathEscape(strings.ToUpper(from)), url.PathEscape(strings.ToUpper(to)))
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return FXRow{}, err
	}
	if len(raw) == 0 {
		return FXRow{}, apperrors.WithMessagef(apperrors.ErrEmptyResult,
			"No rate returned for %s/%s", from, to)
	}

	r := raw[0]
	if r.Rate == nil {
		return FXRow{}, apperrors.WithMessagef(apperrors.ErrInvalidResponse,
			"Rate for %s/%s is missing", from, to)
	}
	return FXRow{
		FromCode: strings.ToUpper(r.From),
		FromName: r.FromName,
		ToCode:   strings.ToUpper(r.To),
		ToName:   r.ToName,
		Rate:     decimal.NewFromFloat(*r.Rate),
	}, nil
}

func optionalDecimal(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

func commodityCategory(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "gold"), strings.Contains(lower, "silver"),
		strings.Contains(lower, "platinum"), strings.Contains(lower, "palladium"):
		return "precious_metal"
	case strings.Contains(lower, "oil"), strings.Contains(lower, "gas"):
		return "energy"
	default:
		return "other"
	}
}
