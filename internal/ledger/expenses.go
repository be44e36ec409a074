package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/calculator"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

// CreateExpenseInput is an expense as entered by a trip member.
type CreateExpenseInput struct {
	TripID      string
	CreatedBy   string
	Title       string
	Description string

	// Amount is in major units of Currency.
	Amount   decimal.Decimal
	Currency string

	// ExpenseDate defaults to the creation time when zero.
	ExpenseDate time.Time

	Payers []calculator.Declaration
	Splits []calculator.Declaration
}

// ExpenseDetail is an expense with its allocation rows.
type ExpenseDetail struct {
	Expense *models.Expense
	Payers  []models.PayerAllocation
	Splits  []models.SplitAllocation
}

// CreateExpense converts, allocates and persists an expense. Either every row
// is written or none is.
func (l *Ledger) CreateExpense(ctx context.Context, in CreateExpenseInput) (_ *ExpenseDetail, err error) {
	defer func() {
		if err != nil {
			l.metrics.IncLedgerError("create_expense")
		}
	}()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := currency.CheckAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, in.Amount)
	}
	code, err := currency.NormalizeCode(in.Currency)
	if err != nil {
		return nil, err
	}

	trip, err := l.getTrip(ctx, in.TripID)
	if err != nil {
		return nil, err
	}
	if err := l.checkMembership(ctx, in); err != nil {
		return nil, err
	}

	converted, err := l.converter.Convert(ctx, in.Amount, code, trip.BaseCurrency)
	if err != nil {
		return nil, err
	}
	if converted <= 0 {
		return nil, fmt.Errorf("%w: %s %s converts to %d %s units", ErrNonPositiveAmount, in.Amount, code, converted, trip.BaseCurrency)
	}

	payerMode, err := calculator.ValidateDeclarations(in.Amount, in.Payers)
	if err != nil {
		return nil, fmt.Errorf("payers: %w", err)
	}
	splitMode, err := calculator.ValidateDeclarations(in.Amount, in.Splits)
	if err != nil {
		return nil, fmt.Errorf("splits: %w", err)
	}

	expenseID := uuid.New().String()

	paid, err := calculator.Allocate(converted, expenseID+":payers", calculator.Participants(in.Payers))
	if err != nil {
		return nil, fmt.Errorf("payers: %w", err)
	}
	owed, err := calculator.Allocate(converted, expenseID+":splits", calculator.Participants(in.Splits))
	if err != nil {
		return nil, fmt.Errorf("splits: %w", err)
	}

	payers := make([]models.PayerAllocation, len(in.Payers))
	for i, d := range in.Payers {
		payers[i] = models.PayerAllocation{
			ExpenseID:  expenseID,
			UserID:     d.UserID,
			Amount:     paid[d.UserID],
			Mode:       payerMode,
			ShareValue: shareValue(d),
		}
	}
	splits := make([]models.SplitAllocation, len(in.Splits))
	for i, d := range in.Splits {
		splits[i] = models.SplitAllocation{
			ExpenseID:  expenseID,
			UserID:     d.UserID,
			AmountOwed: owed[d.UserID],
			Mode:       splitMode,
			ShareValue: shareValue(d),
		}
	}

	if err := checkAllocations(converted, payers, splits); err != nil {
		l.metrics.IncInvariantViolation()
		slog.Error("Allocation invariant violated",
			"trip_id", trip.ID,
			"expense_id", expenseID,
			"converted", converted,
			"error", err,
		)
		return nil, err
	}

	now := time.Now().Unix()
	expense := &models.Expense{
		ID:               expenseID,
		TripID:           trip.ID,
		Title:            title,
		Description:      strings.TrimSpace(in.Description),
		AmountOriginal:   currency.ToMinorUnits(in.Amount),
		CurrencyOriginal: code,
		AmountConverted:  converted,
		BaseCurrency:     trip.BaseCurrency,
		ExpenseDate:      now,
		CreatedBy:        in.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !in.ExpenseDate.IsZero() {
		expense.ExpenseDate = in.ExpenseDate.Unix()
	}

	if err := l.store.CreateExpense(ctx, expense, payers, splits); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	l.metrics.IncExpenseCreated()
	slog.Info("Expense created",
		"trip_id", trip.ID,
		"expense_id", expenseID,
		"amount_original", expense.AmountOriginal,
		"currency_original", code,
		"amount_converted", converted,
		"base_currency", trip.BaseCurrency,
		"payers", len(payers),
		"splits", len(splits),
	)

	return &ExpenseDetail{Expense: expense, Payers: payers, Splits: splits}, nil
}

// checkMembership requires the creator and every declared user to belong to
// the trip.
func (l *Ledger) checkMembership(ctx context.Context, in CreateExpenseInput) error {
	members, err := l.memberSet(ctx, in.TripID)
	if err != nil {
		return err
	}
	if !members[in.CreatedBy] {
		return fmt.Errorf("%w: %s", ErrNotTripMember, in.CreatedBy)
	}
	for _, decls := range [][]calculator.Declaration{in.Payers, in.Splits} {
		for _, d := range decls {
			if d.UserID != "" && !members[d.UserID] {
				return fmt.Errorf("%w: %s", ErrNotTripMember, d.UserID)
			}
		}
	}
	return nil
}

// checkAllocations verifies that payer and split rows each add up to total
// and that no row is negative.
func checkAllocations(total int64, payers []models.PayerAllocation, splits []models.SplitAllocation) error {
	var paid, owed int64
	for _, p := range payers {
		if p.Amount < 0 {
			return fmt.Errorf("%w: payer %s has negative amount %d", ErrInvariantViolation, p.UserID, p.Amount)
		}
		paid += p.Amount
	}
	for _, s := range splits {
		if s.AmountOwed < 0 {
			return fmt.Errorf("%w: split %s has negative amount %d", ErrInvariantViolation, s.UserID, s.AmountOwed)
		}
		owed += s.AmountOwed
	}
	if paid != total {
		return fmt.Errorf("%w: payers sum to %d, want %d", ErrInvariantViolation, paid, total)
	}
	if owed != total {
		return fmt.Errorf("%w: splits sum to %d, want %d", ErrInvariantViolation, owed, total)
	}
	return nil
}

func shareValue(d calculator.Declaration) decimal.NullDecimal {
	if d.Mode == models.ModeEqual || d.Value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d.Value, Valid: true}
}

// GetExpense returns a non-deleted expense of the trip with its rows.
func (l *Ledger) GetExpense(ctx context.Context, tripID, expenseID string) (*ExpenseDetail, error) {
	expense, payers, splits, err := l.store.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrExpenseNotFound, expenseID)
	}
	if err != nil {
		return nil, err
	}
	if expense.TripID != tripID || expense.IsDeleted {
		return nil, fmt.Errorf("%w: %s", ErrExpenseNotFound, expenseID)
	}
	return &ExpenseDetail{Expense: expense, Payers: payers, Splits: splits}, nil
}

// ListExpenses returns the trip's non-deleted expenses, newest first.
func (l *Ledger) ListExpenses(ctx context.Context, tripID string) ([]*models.Expense, error) {
	if _, err := l.getTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return l.store.ListExpensesByTrip(ctx, tripID)
}

// DeleteExpense soft-deletes an expense. Only its creator may delete it.
func (l *Ledger) DeleteExpense(ctx context.Context, tripID, expenseID, callerID string) error {
	detail, err := l.GetExpense(ctx, tripID, expenseID)
	if err != nil {
		return err
	}
	if detail.Expense.CreatedBy != callerID {
		return fmt.Errorf("%w: only the creator can delete expense %s", ErrForbidden, expenseID)
	}

	err = l.store.SoftDeleteExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrExpenseNotFound, expenseID)
	}
	if err != nil {
		l.metrics.IncLedgerError("delete_expense")
		return err
	}

	l.metrics.IncExpenseDeleted()
	slog.Info("Expense deleted", "trip_id", tripID, "expense_id", expenseID, "user_id", callerID)
	return nil
}
