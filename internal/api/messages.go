package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Monetary amounts typed int64 are smallest units of the named currency.
// Decimal amounts are major units and travel as JSON strings.

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	JoinedAt    int64  `json:"joinedAt"`
}

type Trip struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"baseCurrency"`
	InviteCode   string    `json:"inviteCode"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    int64     `json:"createdAt"`
	Members      []*Member `json:"members"`
}

type CreateTripRequest struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"baseCurrency"`
}

type CreateTripResponse struct {
	Trip *Trip `json:"trip"`
}

type JoinTripRequest struct {
	InviteCode string `json:"inviteCode"`
}

type JoinTripResponse struct {
	Trip *Trip `json:"trip"`
}

type GetTripRequest struct {
	TripID string `json:"tripId"`
}

type GetTripResponse struct {
	Trip *Trip `json:"trip"`
}

// Allocation declares how much one user paid or owes.
// Value is required unless Mode is "equal".
type Allocation struct {
	UserID string           `json:"userId"`
	Mode   string           `json:"mode"`
	Value  *decimal.Decimal `json:"value,omitempty"`
}

// AllocationRow is a persisted payer or split row.
type AllocationRow struct {
	UserID string           `json:"userId"`
	Amount int64            `json:"amount"`
	Mode   string           `json:"mode"`
	Value  *decimal.Decimal `json:"value,omitempty"`
}

type Expense struct {
	ID               string           `json:"id"`
	TripID           string           `json:"tripId"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	AmountOriginal   int64            `json:"amountOriginal"`
	CurrencyOriginal string           `json:"currencyOriginal"`
	AmountConverted  int64            `json:"amountConverted"`
	BaseCurrency     string           `json:"baseCurrency"`
	ExpenseDate      time.Time        `json:"expenseDate"`
	CreatedBy        string           `json:"createdBy"`
	CreatedAt        int64            `json:"createdAt"`
	Payers           []*AllocationRow `json:"payers,omitempty"`
	Splits           []*AllocationRow `json:"splits,omitempty"`
}

type CreateExpenseRequest struct {
	TripID      string          `json:"tripId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ExpenseDate *time.Time      `json:"expenseDate,omitempty"`
	Payers      []*Allocation   `json:"payers"`
	Splits      []*Allocation   `json:"splits"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	TripID    string `json:"tripId"`
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	TripID string `json:"tripId"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	TripID    string `json:"tripId"`
	ExpenseID string `json:"expenseId"`
}

type DeleteExpenseResponse struct{}

type GetBalancesRequest struct {
	TripID string `json:"tripId"`
}

// UserBalance is positive when the user owes the caller.
type UserBalance struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

type Transfer struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Amount     int64  `json:"amount"`
}

// GetBalancesResponse reports the caller's position. Net is positive when
// the caller is owed money.
type GetBalancesResponse struct {
	Net             int64          `json:"net"`
	Currency        string         `json:"currency"`
	PerUser         []*UserBalance `json:"perUser"`
	Recommendations []*Transfer    `json:"recommendations"`
}

type Settlement struct {
	ID         string `json:"id"`
	TripID     string `json:"tripId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Note       string `json:"note,omitempty"`
	CreatedBy  string `json:"createdBy"`
	CreatedAt  int64  `json:"createdAt"`
}

// CreateSettlementRequest records a payment from the caller to ToUserID.
type CreateSettlementRequest struct {
	TripID   string `json:"tripId"`
	ToUserID string `json:"toUserId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
	Note     string `json:"note,omitempty"`
}

type CreateSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	TripID string `json:"tripId"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

type DeleteSettlementRequest struct {
	TripID       string `json:"tripId"`
	SettlementID string `json:"settlementId"`
}

type DeleteSettlementResponse struct{}
