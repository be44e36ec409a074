package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

const expenseColumns = `id, trip_id, title, description, amount_original, currency_original,
	amount_converted, base_currency, expense_date, created_by, created_at, updated_at, is_deleted`

// CreateExpense persists an expense and all of its payer and split rows in
// one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, payers []models.PayerAllocation, splits []models.SplitAllocation) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt == 0 {
		expense.UpdatedAt = expense.CreatedAt
	}
	if expense.ExpenseDate == 0 {
		expense.ExpenseDate = expense.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.TripID, expense.Title, nullString(expense.Description),
		expense.AmountOriginal, expense.CurrencyOriginal,
		expense.AmountConverted, expense.BaseCurrency, expense.ExpenseDate,
		expense.CreatedBy, expense.CreatedAt, expense.UpdatedAt, expense.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range payers {
		p := &payers[i]
		p.ExpenseID = expense.ID
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_payers (expense_id, user_id, amount, mode, share_value) VALUES (?, ?, ?, ?, ?)",
			p.ExpenseID, p.UserID, p.Amount, string(p.Mode), p.ShareValue,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payer %s: %w", p.UserID, err)
		}
	}

	for i := range splits {
		sp := &splits[i]
		sp.ExpenseID = expense.ID
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id, amount_owed, mode, share_value) VALUES (?, ?, ?, ?, ?)",
			sp.ExpenseID, sp.UserID, sp.AmountOwed, string(sp.Mode), sp.ShareValue,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split %s: %w", sp.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID with its payer and split rows.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, []models.PayerAllocation, []models.SplitAllocation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, expenseID)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil, fmt.Errorf("%w: expense %s", storage.ErrNotFound, expenseID)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get expense: %w", err)
	}

	payers, err := s.queryPayers(ctx,
		"SELECT expense_id, user_id, amount, mode, share_value FROM expense_payers WHERE expense_id = ? ORDER BY user_id",
		expenseID,
	)
	if err != nil {
		return nil, nil, nil, err
	}

	splits, err := s.querySplits(ctx,
		"SELECT expense_id, user_id, amount_owed, mode, share_value FROM expense_splits WHERE expense_id = ? ORDER BY user_id",
		expenseID,
	)
	if err != nil {
		return nil, nil, nil, err
	}

	return expense, payers, splits, nil
}

// ListExpensesByTrip retrieves all non-deleted expenses of a trip.
func (s *SQLiteStore) ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE trip_id = ? AND is_deleted = 0
		 ORDER BY expense_date DESC, created_at DESC, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by trip: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

// SoftDeleteExpense marks an expense as deleted.
func (s *SQLiteStore) SoftDeleteExpense(ctx context.Context, expenseID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0",
		time.Now().Unix(), expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: expense %s", storage.ErrNotFound, expenseID)
	}

	return nil
}

// ListPayerAllocationsByTrip returns payer rows for every non-deleted expense of a trip.
func (s *SQLiteStore) ListPayerAllocationsByTrip(ctx context.Context, tripID string) ([]models.PayerAllocation, error) {
	return s.queryPayers(ctx,
		`SELECT p.expense_id, p.user_id, p.amount, p.mode, p.share_value
		 FROM expense_payers p JOIN expenses e ON e.id = p.expense_id
		 WHERE e.trip_id = ? AND e.is_deleted = 0`,
		tripID,
	)
}

// ListSplitAllocationsByTrip returns split rows for every non-deleted expense of a trip.
func (s *SQLiteStore) ListSplitAllocationsByTrip(ctx context.Context, tripID string) ([]models.SplitAllocation, error) {
	return s.querySplits(ctx,
		`SELECT sp.expense_id, sp.user_id, sp.amount_owed, sp.mode, sp.share_value
		 FROM expense_splits sp JOIN expenses e ON e.id = sp.expense_id
		 WHERE e.trip_id = ? AND e.is_deleted = 0`,
		tripID,
	)
}

func (s *SQLiteStore) queryPayers(ctx context.Context, query string, args ...any) ([]models.PayerAllocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get payers: %w", err)
	}
	defer rows.Close()

	var payers []models.PayerAllocation
	for rows.Next() {
		var p models.PayerAllocation
		var mode string
		if err := rows.Scan(&p.ExpenseID, &p.UserID, &p.Amount, &mode, &p.ShareValue); err != nil {
			return nil, fmt.Errorf("failed to scan payer: %w", err)
		}
		p.Mode = models.AllocationMode(mode)
		payers = append(payers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payers: %w", err)
	}

	return payers, nil
}

func (s *SQLiteStore) querySplits(ctx context.Context, query string, args ...any) ([]models.SplitAllocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.SplitAllocation
	for rows.Next() {
		var sp models.SplitAllocation
		var mode string
		if err := rows.Scan(&sp.ExpenseID, &sp.UserID, &sp.AmountOwed, &mode, &sp.ShareValue); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		sp.Mode = models.AllocationMode(mode)
		splits = append(splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return splits, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	var description sql.NullString
	err := row.Scan(
		&e.ID, &e.TripID, &e.Title, &description,
		&e.AmountOriginal, &e.CurrencyOriginal,
		&e.AmountConverted, &e.BaseCurrency, &e.ExpenseDate,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	return e, nil
}
