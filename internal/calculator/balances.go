package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// MemberBalance is one counterparty's position relative to a viewer.
type MemberBalance struct {
	UserID string

	// Amount is positive when the user owes the viewer and negative when the
	// viewer owes the user.
	Amount int64
}

// ErrBalanceOverflow is returned when a running balance leaves the int64 range.
var ErrBalanceOverflow = errors.New("balance overflows int64")

// AggregateBalances computes every user's net balance from a trip's ledger
// rows. Positive means the user is owed money, negative means they owe.
//
// Algorithm:
//   - each payer row credits its user
//   - each split row debits its user
//   - each settlement credits the sender and debits the receiver
//
// The returned values always sum to zero when the inputs come from complete
// expenses, since each expense's payer and split rows total the same amount.
// Every addition is checked, so corrupt rows surface as ErrBalanceOverflow
// instead of wrapping.
func AggregateBalances(payers []models.PayerAllocation, splits []models.SplitAllocation, settlements []models.Settlement) (map[string]int64, error) {
	balances := make(map[string]int64)
	apply := func(userID string, delta int64) error {
		next, ok := addInt64(balances[userID], delta)
		if !ok {
			return fmt.Errorf("%w: user %s", ErrBalanceOverflow, userID)
		}
		balances[userID] = next
		return nil
	}

	for _, p := range payers {
		if err := apply(p.UserID, p.Amount); err != nil {
			return nil, err
		}
	}
	for _, s := range splits {
		if s.AmountOwed == math.MinInt64 {
			return nil, fmt.Errorf("%w: user %s", ErrBalanceOverflow, s.UserID)
		}
		if err := apply(s.UserID, -s.AmountOwed); err != nil {
			return nil, err
		}
	}
	for _, s := range settlements {
		if s.Amount == math.MinInt64 {
			return nil, fmt.Errorf("%w: user %s", ErrBalanceOverflow, s.ToUserID)
		}
		if err := apply(s.FromUserID, s.Amount); err != nil {
			return nil, err
		}
		if err := apply(s.ToUserID, -s.Amount); err != nil {
			return nil, err
		}
	}

	return balances, nil
}

// SumBalances adds up every balance, failing with ErrBalanceOverflow rather
// than wrapping.
func SumBalances(balances map[string]int64) (int64, error) {
	var total int64
	for userID, balance := range balances {
		next, ok := addInt64(total, balance)
		if !ok {
			return 0, fmt.Errorf("%w: summing at user %s", ErrBalanceOverflow, userID)
		}
		total = next
	}
	return total, nil
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return c, false
	}
	return c, true
}

// ViewFrom returns the viewer's net balance and every other user with a
// non-zero balance, from the viewer's perspective, largest first.
func ViewFrom(balances map[string]int64, viewerID string) (int64, []MemberBalance) {
	perUser := make([]MemberBalance, 0, len(balances))
	for userID, balance := range balances {
		if userID == viewerID || balance == 0 {
			continue
		}
		perUser = append(perUser, MemberBalance{UserID: userID, Amount: -balance})
	}

	sort.Slice(perUser, func(i, j int) bool {
		ai, aj := abs(perUser[i].Amount), abs(perUser[j].Amount)
		if ai != aj {
			return ai > aj
		}
		return perUser[i].UserID < perUser[j].UserID
	})

	return balances[viewerID], perUser
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
