// Package fx keeps FX rate snapshots fresh and serves the latest snapshot per
// base currency to the currency converter.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// ProviderName is recorded on snapshots fetched by HTTPProvider.
const ProviderName = "exchangerate-api"

// inversionPlaces is the precision kept when inverting provider quotes.
const inversionPlaces = 10

// Provider fetches a fresh rate snapshot for a base currency.
type Provider interface {
	Fetch(ctx context.Context, base string) (*models.RateSnapshot, error)
}

// HTTPProvider fetches rates from an exchangerate-api style endpoint.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// latestResponse is the body of GET <baseURL>/latest/<BASE>.
// ConversionRates quotes one unit of BaseCode in each currency.
type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type,omitempty"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// NewHTTPProvider creates a provider for baseURL. When apiKey is set it is
// inserted as a path segment before /latest.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns a snapshot where Rates[c] is the value of one c in base.
func (p *HTTPProvider) Fetch(ctx context.Context, base string) (*models.RateSnapshot, error) {
	base = strings.ToUpper(base)

	url := p.baseURL
	if p.apiKey != "" {
		url += "/" + p.apiKey
	}
	url += "/latest/" + base

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rate provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("rate provider returned result=%s %s", body.Result, body.ErrorType)
	}
	if body.BaseCode != "" && !strings.EqualFold(body.BaseCode, base) {
		return nil, fmt.Errorf("rate provider answered for %s, asked for %s", body.BaseCode, base)
	}

	return &models.RateSnapshot{
		Provider:  ProviderName,
		Base:      base,
		Rates:     invertQuotes(base, body.ConversionRates),
		FetchedAt: time.Now().Unix(),
	}, nil
}

// invertQuotes turns "1 base = x c" quotes into "1 c = 1/x base".
// Non-positive quotes are dropped.
func invertQuotes(base string, quotes map[string]decimal.Decimal) map[string]decimal.Decimal {
	one := decimal.NewFromInt(1)
	rates := make(map[string]decimal.Decimal, len(quotes)+1)
	for code, quote := range quotes {
		if !quote.IsPositive() {
			continue
		}
		rates[strings.ToUpper(code)] = one.DivRound(quote, inversionPlaces)
	}
	rates[base] = one
	return rates
}
