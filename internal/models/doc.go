// Package models defines the core domain models for TravelBuddy.
//
// # Models
//
//   - User: Registered account, identified by ID in every other model
//   - Trip, TripMember: A group trip and the users who joined it
//   - Expense: A shared expense, with PayerAllocation and SplitAllocation rows
//   - Settlement: A direct payment between two members outside the expense flow
//   - RateSnapshot: FX rates fetched from a provider, used at expense creation
//
// # Money
//
// Every stored amount is an int64 in the smallest unit of its currency
// (cents, paise). Decimal inputs such as major-unit amounts, share values and
// FX rates use shopspring/decimal and are never float64.
//
// # Relationships
//
// Models reference each other by ID string rather than by pointer. Balances
// and transfer recommendations are derived on every read and have no model.
package models
