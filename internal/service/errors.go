package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/auth"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/calculator"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/ledger"
)

var invalidArgumentErrors = []error{
	calculator.ErrEmptyParticipantSet,
	calculator.ErrMixedMode,
	calculator.ErrUnknownMode,
	calculator.ErrDuplicateParticipant,
	calculator.ErrInvalidWeights,
	calculator.ErrNegativeTotal,
	calculator.ErrSumMismatch,
	calculator.ErrInvalidShares,
	calculator.ErrMissingValue,
	calculator.ErrMissingUserID,
	calculator.ErrNegativeValues,
	calculator.ErrValueOutOfRange,
	currency.ErrInvalidCurrency,
	currency.ErrAmountOutOfRange,
	ledger.ErrNonPositiveAmount,
	ledger.ErrCurrencyMismatch,
	ledger.ErrInvalidInput,
	auth.ErrWeakPassword,
	auth.ErrInvalidEmail,
}

var notFoundErrors = []error{
	ledger.ErrTripNotFound,
	ledger.ErrExpenseNotFound,
	ledger.ErrSettlementNotFound,
}

var permissionDeniedErrors = []error{
	ledger.ErrNotTripMember,
	ledger.ErrForbidden,
}

// toConnectError maps domain errors to Connect status codes. Errors that
// already carry a code are returned unchanged.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, currency.ErrRateUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, ledger.ErrInvariantViolation):
		return connect.NewError(connect.CodeInternal, err)
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case isAny(err, notFoundErrors):
		return connect.NewError(connect.CodeNotFound, err)
	case isAny(err, permissionDeniedErrors):
		return connect.NewError(connect.CodePermissionDenied, err)
	case isAny(err, invalidArgumentErrors):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
