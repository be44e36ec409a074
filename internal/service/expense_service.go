package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/api"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/calculator"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/ledger"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// ExpenseService implements api.ExpenseServiceHandler on top of the ledger.
type ExpenseService struct {
	ledger *ledger.Ledger
}

var _ api.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates an ExpenseService.
func NewExpenseService(l *ledger.Ledger) *ExpenseService {
	return &ExpenseService{ledger: l}
}

// CreateExpense records an expense paid and owed by trip members.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateExpense request received",
		"trip_id", req.Msg.TripID,
		"title", req.Msg.Title,
		"currency", req.Msg.Currency,
		"payers_count", len(req.Msg.Payers),
		"splits_count", len(req.Msg.Splits),
	)

	payers, err := toDeclarations(req.Msg.Payers)
	if err != nil {
		return nil, toConnectError(err)
	}
	splits, err := toDeclarations(req.Msg.Splits)
	if err != nil {
		return nil, toConnectError(err)
	}

	in := ledger.CreateExpenseInput{
		TripID:      req.Msg.TripID,
		CreatedBy:   userID,
		Title:       req.Msg.Title,
		Description: req.Msg.Description,
		Amount:      req.Msg.Amount,
		Currency:    req.Msg.Currency,
		Payers:      payers,
		Splits:      splits,
	}
	if req.Msg.ExpenseDate != nil {
		in.ExpenseDate = *req.Msg.ExpenseDate
	}

	detail, err := s.ledger.CreateExpense(ctx, in)
	if err != nil {
		slog.Error("CreateExpense failed", "trip_id", req.Msg.TripID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(detail)}), nil
}

// GetExpense returns one expense with its payer and split rows.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	if err := s.requireMember(ctx, req.Msg.TripID); err != nil {
		return nil, err
	}

	detail, err := s.ledger.GetExpense(ctx, req.Msg.TripID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(detail)}), nil
}

// ListExpenses returns the trip's live expenses without allocation rows.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	if err := s.requireMember(ctx, req.Msg.TripID); err != nil {
		return nil, err
	}

	expenses, err := s.ledger.ListExpenses(ctx, req.Msg.TripID)
	if err != nil {
		slog.Error("ListExpenses failed", "trip_id", req.Msg.TripID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(&ledger.ExpenseDetail{Expense: e})
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// DeleteExpense soft-deletes an expense created by the caller.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteExpense request received", "trip_id", req.Msg.TripID, "expense_id", req.Msg.ExpenseID)

	if err := s.requireMember(ctx, req.Msg.TripID); err != nil {
		return nil, err
	}
	if err := s.ledger.DeleteExpense(ctx, req.Msg.TripID, req.Msg.ExpenseID, userID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// GetBalances returns the caller's balances and settle-up recommendations.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, req.Msg.TripID); err != nil {
		return nil, err
	}

	report, err := s.ledger.GetBalances(ctx, req.Msg.TripID, userID)
	if err != nil {
		slog.Error("GetBalances failed", "trip_id", req.Msg.TripID, "error", err)
		return nil, toConnectError(err)
	}

	resp := &api.GetBalancesResponse{
		Net:             report.Net,
		Currency:        report.Currency,
		PerUser:         make([]*api.UserBalance, len(report.PerUser)),
		Recommendations: make([]*api.Transfer, len(report.Recommendations)),
	}
	for i, b := range report.PerUser {
		resp.PerUser[i] = &api.UserBalance{UserID: b.UserID, Amount: b.Amount}
	}
	for i, t := range report.Recommendations {
		resp.Recommendations[i] = &api.Transfer{FromUserID: t.FromUserID, ToUserID: t.ToUserID, Amount: t.Amount}
	}

	slog.Debug("GetBalances successful", "trip_id", req.Msg.TripID, "net", report.Net, "transfers", len(report.Recommendations))
	return connect.NewResponse(resp), nil
}

// CreateSettlement records a payment from the caller to another member.
func (s *ExpenseService) CreateSettlement(ctx context.Context, req *connect.Request[api.CreateSettlementRequest]) (*connect.Response[api.CreateSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateSettlement request received", "trip_id", req.Msg.TripID, "to", req.Msg.ToUserID, "amount", req.Msg.Amount)

	settlement, err := s.ledger.CreateSettlement(ctx, ledger.SettlementInput{
		TripID:     req.Msg.TripID,
		FromUserID: userID,
		ToUserID:   req.Msg.ToUserID,
		Amount:     req.Msg.Amount,
		Currency:   req.Msg.Currency,
		Note:       req.Msg.Note,
	})
	if err != nil {
		slog.Error("CreateSettlement failed", "trip_id", req.Msg.TripID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CreateSettlementResponse{Settlement: toAPISettlement(settlement)}), nil
}

// ListSettlements returns the trip's settlements.
func (s *ExpenseService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	if err := s.requireMember(ctx, req.Msg.TripID); err != nil {
		return nil, err
	}

	settlements, err := s.ledger.ListSettlements(ctx, req.Msg.TripID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toAPISettlement(st)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}

// DeleteSettlement removes a settlement the caller is a party to.
func (s *ExpenseService) DeleteSettlement(ctx context.Context, req *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[api.DeleteSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteSettlement request received", "trip_id", req.Msg.TripID, "settlement_id", req.Msg.SettlementID)

	if err := s.requireMember(ctx, req.Msg.TripID); err != nil {
		return nil, err
	}
	if err := s.ledger.DeleteSettlement(ctx, req.Msg.TripID, req.Msg.SettlementID, userID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteSettlementResponse{}), nil
}

func (s *ExpenseService) requireMember(ctx context.Context, tripID string) error {
	userID, err := callerID(ctx)
	if err != nil {
		return err
	}
	if _, err := s.ledger.RequireMember(ctx, tripID, userID); err != nil {
		return toConnectError(err)
	}
	return nil
}

func toDeclarations(in []*api.Allocation) ([]calculator.Declaration, error) {
	decls := make([]calculator.Declaration, 0, len(in))
	for i, a := range in {
		if a == nil {
			return nil, fmt.Errorf("%w: allocation %d is empty", ledger.ErrInvalidInput, i)
		}
		decls = append(decls, calculator.Declaration{
			UserID: strings.TrimSpace(a.UserID),
			Mode:   models.AllocationMode(strings.ToLower(strings.TrimSpace(a.Mode))),
			Value:  a.Value,
		})
	}
	return decls, nil
}

func toAPIExpense(detail *ledger.ExpenseDetail) *api.Expense {
	e := detail.Expense
	out := &api.Expense{
		ID:               e.ID,
		TripID:           e.TripID,
		Title:            e.Title,
		Description:      e.Description,
		AmountOriginal:   e.AmountOriginal,
		CurrencyOriginal: e.CurrencyOriginal,
		AmountConverted:  e.AmountConverted,
		BaseCurrency:     e.BaseCurrency,
		ExpenseDate:      time.Unix(e.ExpenseDate, 0).UTC(),
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
	}
	for _, p := range detail.Payers {
		out.Payers = append(out.Payers, toAPIRow(p.UserID, p.Amount, p.Mode, p.ShareValue.Valid, p.ShareValue.Decimal))
	}
	for _, sp := range detail.Splits {
		out.Splits = append(out.Splits, toAPIRow(sp.UserID, sp.AmountOwed, sp.Mode, sp.ShareValue.Valid, sp.ShareValue.Decimal))
	}
	return out
}

func toAPIRow(userID string, amount int64, mode models.AllocationMode, hasValue bool, value decimal.Decimal) *api.AllocationRow {
	row := &api.AllocationRow{UserID: userID, Amount: amount, Mode: string(mode)}
	if hasValue {
		row.Value = &value
	}
	return row
}

func toAPISettlement(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:         s.ID,
		TripID:     s.TripID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount,
		Currency:   s.Currency,
		Note:       s.Note,
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}
