package calculator

import "sort"

// Transfer is a recommended payment that moves Amount from a debtor to a
// creditor.
type Transfer struct {
	FromUserID string
	ToUserID   string
	Amount     int64
}

type position struct {
	userID    string
	remaining int64
}

// ComputeTransfers returns payments that bring every balance to zero.
//
// Greedy matching: debtors and creditors are each sorted by amount (largest
// first, ties by user ID), then the current largest debtor pays the current
// largest creditor the smaller of the two remaining amounts. Whichever side
// reaches zero is skipped. Each step clears at least one user, so at most
// n-1 transfers are produced for n non-zero balances.
//
// Input balances must sum to zero.
func ComputeTransfers(balances map[string]int64) []Transfer {
	var debtors, creditors []position
	for userID, balance := range balances {
		switch {
		case balance < 0:
			debtors = append(debtors, position{userID: userID, remaining: -balance})
		case balance > 0:
			creditors = append(creditors, position{userID: userID, remaining: balance})
		}
	}
	sortPositions(debtors)
	sortPositions(creditors)

	transfers := make([]Transfer, 0, len(debtors)+len(creditors))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]

		amount := min(d.remaining, c.remaining)
		transfers = append(transfers, Transfer{
			FromUserID: d.userID,
			ToUserID:   c.userID,
			Amount:     amount,
		})

		d.remaining -= amount
		c.remaining -= amount
		if d.remaining == 0 {
			i++
		}
		if c.remaining == 0 {
			j++
		}
	}

	return transfers
}

func sortPositions(ps []position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].remaining != ps[j].remaining {
			return ps[i].remaining > ps[j].remaining
		}
		return ps[i].userID < ps[j].userID
	})
}
