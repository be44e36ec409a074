package models

import "github.com/shopspring/decimal"

// RateSnapshot is a set of FX rates fetched from a provider.
//
// Rates[c] is the value of one unit of currency c expressed in Base, so an
// amount in c converts to Base by multiplication.
type RateSnapshot struct {
	ID        string
	Provider  string
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt int64
}
