// Package currency converts entered amounts into smallest units of a trip's
// base currency using the latest FX rate snapshot.
package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

var (
	// ErrRateUnavailable is returned when no snapshot exists for the target
	// base currency or the snapshot has no rate for the source currency.
	// Callers should treat it as retryable.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrInvalidCurrency is returned for codes that are not three letters.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrAmountOutOfRange is returned for amounts above MaxMinorUnits or
	// with more than MaxDecimalPlaces decimal places.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

const (
	// MinorUnitsPerMajor is the number of smallest units in one major unit.
	MinorUnitsPerMajor = 100

	// MaxMinorUnits caps every amount the ledger stores. A trip would need
	// millions of capped rows before a balance could leave int64.
	MaxMinorUnits int64 = 1_000_000_000_000

	// MaxDecimalPlaces bounds the precision of entered amounts.
	MaxDecimalPlaces = 10

	// maxMajorExponent is the largest exponent a non-zero amount below
	// MaxMinorUnits can carry.
	maxMajorExponent = 10
)

var (
	minorUnits    = decimal.NewFromInt(MinorUnitsPerMajor)
	maxMinorUnits = decimal.NewFromInt(MaxMinorUnits)
	maxMajorUnits = decimal.New(MaxMinorUnits, -2)
)

// RateSource returns the most recently fetched snapshot for a base currency.
// Implementations return ErrRateUnavailable when none exists.
type RateSource interface {
	LatestRateSnapshot(ctx context.Context, base string) (*models.RateSnapshot, error)
}

// Converter converts major-unit amounts between currencies.
type Converter struct {
	rates RateSource
}

// NewConverter creates a Converter backed by the given rate source.
func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// Convert returns amount (in major units of from) as smallest units of to.
// The result is rounded half-up, the only rounding step in the ledger.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (int64, error) {
	if err := CheckAmount(amount); err != nil {
		return 0, err
	}
	from, err := NormalizeCode(from)
	if err != nil {
		return 0, err
	}
	to, err = NormalizeCode(to)
	if err != nil {
		return 0, err
	}

	if from == to {
		return ToMinorUnits(amount), nil
	}

	snapshot, err := c.rates.LatestRateSnapshot(ctx, to)
	if err != nil {
		if errors.Is(err, ErrRateUnavailable) {
			return 0, fmt.Errorf("%w: no snapshot for base %s", ErrRateUnavailable, to)
		}
		return 0, fmt.Errorf("failed to load rates for %s: %w", to, err)
	}

	rate, ok := snapshot.Rates[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no rate for %s", ErrRateUnavailable, to, from)
	}

	converted := amount.Mul(rate).Mul(minorUnits).Round(0)
	if converted.Abs().GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: converts to more than %d %s units", ErrAmountOutOfRange, MaxMinorUnits, to)
	}
	return converted.IntPart(), nil
}

// CheckAmount rejects amounts that would exceed MaxMinorUnits once scaled to
// smallest units, and amounts with more than MaxDecimalPlaces decimals. The
// exponent is checked before any arithmetic on the value.
func CheckAmount(amount decimal.Decimal) error {
	exp := amount.Exponent()
	if exp < -MaxDecimalPlaces {
		return fmt.Errorf("%w: more than %d decimal places", ErrAmountOutOfRange, MaxDecimalPlaces)
	}
	if amount.IsZero() {
		return nil
	}
	if exp > maxMajorExponent || amount.Abs().GreaterThan(maxMajorUnits) {
		return fmt.Errorf("%w: more than %d smallest units", ErrAmountOutOfRange, MaxMinorUnits)
	}
	return nil
}

// ToMinorUnits converts a major-unit amount to smallest units, rounding
// half away from zero (half-up for the positive amounts the ledger accepts).
// The amount must have passed CheckAmount.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).Round(0).IntPart()
}

// FromMinorUnits converts smallest units back to a major-unit decimal.
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -2)
}

// NormalizeCode upper-cases and validates an ISO 4217 style code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
	}
	return code, nil
}
