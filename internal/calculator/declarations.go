package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

var (
	ErrSumMismatch    = errors.New("declared values do not add up")
	ErrInvalidShares  = errors.New("shares must be whole numbers of at least 1")
	ErrMissingValue   = errors.New("value is required for this allocation mode")
	ErrMissingUserID  = errors.New("user id is required")
	ErrNegativeValues = errors.New("declared values cannot be negative")

	ErrValueOutOfRange = errors.New("declared value out of range")
)

const (
	// MaxValueDecimals bounds the precision of declared values.
	MaxValueDecimals = 10

	maxValueExponent = 15
)

var (
	hundred  = decimal.NewFromInt(100)
	maxValue = decimal.New(1, maxValueExponent)
)

// checkValue rejects declared values below 1e-10 precision or at least 1e15
// in magnitude. The exponent is checked before any arithmetic on v.
func checkValue(v decimal.Decimal) error {
	exp := v.Exponent()
	if exp < -MaxValueDecimals {
		return fmt.Errorf("%w: more than %d decimal places", ErrValueOutOfRange, MaxValueDecimals)
	}
	if v.IsZero() {
		return nil
	}
	if exp > maxValueExponent || v.Abs().GreaterThanOrEqual(maxValue) {
		return fmt.Errorf("%w: magnitude must be below %s", ErrValueOutOfRange, maxValue)
	}
	return nil
}

// Declaration is a payer or split entry as submitted by a client.
type Declaration struct {
	UserID string
	Mode   models.AllocationMode

	// Value is required for every mode except ModeEqual:
	// a major-unit amount, a percentage, or a share count.
	Value *decimal.Decimal
}

// ValidateDeclarations checks that a payer or split list is well formed for
// an expense of amount (major units) and returns the list's mode.
//
// Absolute values must add up to amount and percentages to 100. Shares must
// be whole numbers >= 1. The allocator itself does not enforce these rules.
func ValidateDeclarations(amount decimal.Decimal, decls []Declaration) (models.AllocationMode, error) {
	if len(decls) == 0 {
		return "", ErrEmptyParticipantSet
	}

	mode := decls[0].Mode
	seen := make(map[string]bool, len(decls))
	sum := decimal.Zero
	for _, d := range decls {
		if d.UserID == "" {
			return "", ErrMissingUserID
		}
		if seen[d.UserID] {
			return "", fmt.Errorf("%w: %s", ErrDuplicateParticipant, d.UserID)
		}
		seen[d.UserID] = true

		if !d.Mode.Valid() {
			return "", fmt.Errorf("%w: %q", ErrUnknownMode, d.Mode)
		}
		if d.Mode != mode {
			return "", ErrMixedMode
		}
		if mode == models.ModeEqual {
			continue
		}

		if d.Value == nil {
			return "", fmt.Errorf("%w: %s (%s)", ErrMissingValue, d.UserID, mode)
		}
		if err := checkValue(*d.Value); err != nil {
			return "", fmt.Errorf("%w (user %s)", err, d.UserID)
		}
		if d.Value.IsNegative() {
			return "", fmt.Errorf("%w: %s", ErrNegativeValues, d.UserID)
		}
		if mode == models.ModeShares && (!d.Value.IsInteger() || d.Value.LessThan(decimal.NewFromInt(1))) {
			return "", fmt.Errorf("%w: %s has %s", ErrInvalidShares, d.UserID, d.Value)
		}
		sum = sum.Add(*d.Value)
	}

	switch mode {
	case models.ModeAbsolute:
		if !sum.Equal(amount) {
			return "", fmt.Errorf("%w: absolute values must add up to the expense amount", ErrSumMismatch)
		}
	case models.ModePercentage:
		if !sum.Equal(hundred) {
			return "", fmt.Errorf("%w: percentages must add up to 100", ErrSumMismatch)
		}
	}

	return mode, nil
}

// Participants converts validated declarations into allocator input.
func Participants(decls []Declaration) []Participant {
	participants := make([]Participant, len(decls))
	for i, d := range decls {
		participants[i] = Participant{ID: d.UserID, Mode: d.Mode}
		if d.Value != nil {
			participants[i].Value = *d.Value
		}
	}
	return participants
}
