package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

var (
	ErrEmptyParticipantSet  = errors.New("at least one participant is required")
	ErrMixedMode            = errors.New("all participants must use the same allocation mode")
	ErrUnknownMode          = errors.New("unknown allocation mode")
	ErrDuplicateParticipant = errors.New("participant listed more than once")
	ErrInvalidWeights       = errors.New("weights must be non-negative with a positive sum")
	ErrNegativeTotal        = errors.New("total cannot be negative")
)

// Participant is one entry of an allocation call.
type Participant struct {
	ID   string
	Mode models.AllocationMode

	// Value is the declared weight. Ignored for ModeEqual.
	Value decimal.Decimal
}

// Allocate divides total (in smallest units) among participants in
// proportion to their weights. The returned allocations always sum to total.
//
// Algorithm:
//   - ideal_i = weight_i / sum(weights) * total, computed exactly
//   - every participant gets floor(ideal_i)
//   - the remaining r units (r < number of positive weights) go one at a time
//     to participants ordered by a stable hash of (seed, id)
//
// The same total, participants and seed always produce the same result. Using
// a different seed per expense spreads the leftover units across members.
func Allocate(total int64, seed string, participants []Participant) (map[string]int64, error) {
	if total < 0 {
		return nil, ErrNegativeTotal
	}
	mode, err := commonMode(participants)
	if err != nil {
		return nil, err
	}

	weights, err := integerWeights(mode, participants)
	if err != nil {
		return nil, err
	}

	sum := new(big.Int)
	for _, w := range weights {
		sum.Add(sum, w)
	}
	if sum.Sign() == 0 {
		return nil, ErrInvalidWeights
	}

	result := make(map[string]int64, len(participants))
	bigTotal := big.NewInt(total)
	eligible := make([]string, 0, len(participants))
	var allocated int64
	for i, p := range participants {
		// Both factors are non-negative, so truncation is floor.
		share := new(big.Int).Mul(weights[i], bigTotal)
		share.Quo(share, sum)
		result[p.ID] = share.Int64()
		allocated += share.Int64()
		if weights[i].Sign() > 0 {
			eligible = append(eligible, p.ID)
		}
	}

	remainder := total - allocated
	order := tieBreakOrder(seed, eligible)
	for k := int64(0); k < remainder; k++ {
		result[order[k%int64(len(order))]]++
	}

	return result, nil
}

// commonMode returns the single mode shared by all participants.
func commonMode(participants []Participant) (models.AllocationMode, error) {
	if len(participants) == 0 {
		return "", ErrEmptyParticipantSet
	}
	mode := participants[0].Mode
	for _, p := range participants {
		if !p.Mode.Valid() {
			return "", ErrUnknownMode
		}
		if p.Mode != mode {
			return "", ErrMixedMode
		}
	}
	return mode, nil
}

// integerWeights scales declared decimal weights by a common power of ten so
// that every weight becomes an exact integer.
func integerWeights(mode models.AllocationMode, participants []Participant) ([]*big.Int, error) {
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			return nil, ErrDuplicateParticipant
		}
		seen[p.ID] = true
	}

	weights := make([]*big.Int, len(participants))
	if mode == models.ModeEqual {
		for i := range weights {
			weights[i] = big.NewInt(1)
		}
		return weights, nil
	}

	var scale int32
	for _, p := range participants {
		if p.Value.IsNegative() {
			return nil, ErrInvalidWeights
		}
		if err := checkValue(p.Value); err != nil {
			return nil, fmt.Errorf("%w (participant %s)", err, p.ID)
		}
		if exp := p.Value.Exponent(); -exp > scale {
			scale = -exp
		}
	}
	for i, p := range participants {
		weights[i] = p.Value.Shift(scale).BigInt()
	}
	return weights, nil
}

// tieBreakOrder sorts ids by xxhash of seed and id, falling back to the id
// itself on hash collision.
func tieBreakOrder(seed string, ids []string) []string {
	type keyed struct {
		id   string
		hash uint64
	}
	keys := make([]keyed, len(ids))
	for i, id := range ids {
		keys[i] = keyed{id: id, hash: tieBreakHash(seed, id)}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hash != keys[j].hash {
			return keys[i].hash < keys[j].hash
		}
		return keys[i].id < keys[j].id
	})

	order := make([]string, len(keys))
	for i, k := range keys {
		order[i] = k.id
	}
	return order
}

func tieBreakHash(seed, id string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(seed)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(id)
	return d.Sum64()
}
