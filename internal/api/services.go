package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	AuthServiceName    = "travelbuddy.v1.AuthService"
	TripServiceName    = "travelbuddy.v1.TripService"
	ExpenseServiceName = "travelbuddy.v1.ExpenseService"
)

// Procedure paths, as used in HTTP routes and Spec().Procedure.
const (
	AuthServiceRegisterProcedure = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure    = "/" + AuthServiceName + "/Login"

	TripServiceCreateTripProcedure = "/" + TripServiceName + "/CreateTrip"
	TripServiceJoinTripProcedure   = "/" + TripServiceName + "/JoinTrip"
	TripServiceGetTripProcedure    = "/" + TripServiceName + "/GetTrip"

	ExpenseServiceCreateExpenseProcedure    = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceGetExpenseProcedure       = "/" + ExpenseServiceName + "/GetExpense"
	ExpenseServiceListExpensesProcedure     = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceDeleteExpenseProcedure    = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceGetBalancesProcedure      = "/" + ExpenseServiceName + "/GetBalances"
	ExpenseServiceCreateSettlementProcedure = "/" + ExpenseServiceName + "/CreateSettlement"
	ExpenseServiceListSettlementsProcedure  = "/" + ExpenseServiceName + "/ListSettlements"
	ExpenseServiceDeleteSettlementProcedure = "/" + ExpenseServiceName + "/DeleteSettlement"
)

// AuthServiceHandler is implemented by the account service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
}

// TripServiceHandler is implemented by the trip service.
type TripServiceHandler interface {
	CreateTrip(context.Context, *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error)
	JoinTrip(context.Context, *connect.Request[JoinTripRequest]) (*connect.Response[JoinTripResponse], error)
	GetTrip(context.Context, *connect.Request[GetTripRequest]) (*connect.Response[GetTripResponse], error)
}

// ExpenseServiceHandler is implemented by the expense and settlement service.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	CreateSettlement(context.Context, *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
	DeleteSettlement(context.Context, *connect.Request[DeleteSettlementRequest]) (*connect.Response[DeleteSettlementResponse], error)
}

// NewAuthServiceHandler returns the mount path and handler for svc.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + AuthServiceName + "/", route(map[string]http.Handler{
		AuthServiceRegisterProcedure: connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...),
		AuthServiceLoginProcedure:    connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
	})
}

// NewTripServiceHandler returns the mount path and handler for svc.
func NewTripServiceHandler(svc TripServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + TripServiceName + "/", route(map[string]http.Handler{
		TripServiceCreateTripProcedure: connect.NewUnaryHandler(TripServiceCreateTripProcedure, svc.CreateTrip, opts...),
		TripServiceJoinTripProcedure:   connect.NewUnaryHandler(TripServiceJoinTripProcedure, svc.JoinTrip, opts...),
		TripServiceGetTripProcedure:    connect.NewUnaryHandler(TripServiceGetTripProcedure, svc.GetTrip, opts...),
	})
}

// NewExpenseServiceHandler returns the mount path and handler for svc.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + ExpenseServiceName + "/", route(map[string]http.Handler{
		ExpenseServiceCreateExpenseProcedure:    connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...),
		ExpenseServiceGetExpenseProcedure:       connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...),
		ExpenseServiceListExpensesProcedure:     connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...),
		ExpenseServiceDeleteExpenseProcedure:    connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...),
		ExpenseServiceGetBalancesProcedure:      connect.NewUnaryHandler(ExpenseServiceGetBalancesProcedure, svc.GetBalances, opts...),
		ExpenseServiceCreateSettlementProcedure: connect.NewUnaryHandler(ExpenseServiceCreateSettlementProcedure, svc.CreateSettlement, opts...),
		ExpenseServiceListSettlementsProcedure:  connect.NewUnaryHandler(ExpenseServiceListSettlementsProcedure, svc.ListSettlements, opts...),
		ExpenseServiceDeleteSettlementProcedure: connect.NewUnaryHandler(ExpenseServiceDeleteSettlementProcedure, svc.DeleteSettlement, opts...),
	})
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

func route(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// AuthServiceClient calls AuthService.
type AuthServiceClient interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
}

// TripServiceClient calls TripService.
type TripServiceClient interface {
	CreateTrip(context.Context, *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error)
	JoinTrip(context.Context, *connect.Request[JoinTripRequest]) (*connect.Response[JoinTripResponse], error)
	GetTrip(context.Context, *connect.Request[GetTripRequest]) (*connect.Response[GetTripResponse], error)
}

// ExpenseServiceClient calls ExpenseService.
type ExpenseServiceClient interface {
	ExpenseServiceHandler
}

// NewAuthServiceClient creates a client for the server at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL, opts = clientOptions(baseURL, opts)
	return &authServiceClient{
		register: connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:    connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
	}
}

// NewTripServiceClient creates a client for the server at baseURL.
func NewTripServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) TripServiceClient {
	baseURL, opts = clientOptions(baseURL, opts)
	return &tripServiceClient{
		createTrip: connect.NewClient[CreateTripRequest, CreateTripResponse](httpClient, baseURL+TripServiceCreateTripProcedure, opts...),
		joinTrip:   connect.NewClient[JoinTripRequest, JoinTripResponse](httpClient, baseURL+TripServiceJoinTripProcedure, opts...),
		getTrip:    connect.NewClient[GetTripRequest, GetTripResponse](httpClient, baseURL+TripServiceGetTripProcedure, opts...),
	}
}

// NewExpenseServiceClient creates a client for the server at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL, opts = clientOptions(baseURL, opts)
	return &expenseServiceClient{
		createExpense:    connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		getExpense:       connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+ExpenseServiceGetExpenseProcedure, opts...),
		listExpenses:     connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		deleteExpense:    connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
		getBalances:      connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+ExpenseServiceGetBalancesProcedure, opts...),
		createSettlement: connect.NewClient[CreateSettlementRequest, CreateSettlementResponse](httpClient, baseURL+ExpenseServiceCreateSettlementProcedure, opts...),
		listSettlements:  connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+ExpenseServiceListSettlementsProcedure, opts...),
		deleteSettlement: connect.NewClient[DeleteSettlementRequest, DeleteSettlementResponse](httpClient, baseURL+ExpenseServiceDeleteSettlementProcedure, opts...),
	}
}

func clientOptions(baseURL string, opts []connect.ClientOption) (string, []connect.ClientOption) {
	return strings.TrimRight(baseURL, "/"), append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
}

type authServiceClient struct {
	register *connect.Client[RegisterRequest, RegisterResponse]
	login    *connect.Client[LoginRequest, LoginResponse]
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

type tripServiceClient struct {
	createTrip *connect.Client[CreateTripRequest, CreateTripResponse]
	joinTrip   *connect.Client[JoinTripRequest, JoinTripResponse]
	getTrip    *connect.Client[GetTripRequest, GetTripResponse]
}

func (c *tripServiceClient) CreateTrip(ctx context.Context, req *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error) {
	return c.createTrip.CallUnary(ctx, req)
}

func (c *tripServiceClient) JoinTrip(ctx context.Context, req *connect.Request[JoinTripRequest]) (*connect.Response[JoinTripResponse], error) {
	return c.joinTrip.CallUnary(ctx, req)
}

func (c *tripServiceClient) GetTrip(ctx context.Context, req *connect.Request[GetTripRequest]) (*connect.Response[GetTripResponse], error) {
	return c.getTrip.CallUnary(ctx, req)
}

type expenseServiceClient struct {
	createExpense    *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense       *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses     *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense    *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	getBalances      *connect.Client[GetBalancesRequest, GetBalancesResponse]
	createSettlement *connect.Client[CreateSettlementRequest, CreateSettlementResponse]
	listSettlements  *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
	deleteSettlement *connect.Client[DeleteSettlementRequest, DeleteSettlementResponse]
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *expenseServiceClient) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error) {
	return c.createSettlement.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteSettlement(ctx context.Context, req *connect.Request[DeleteSettlementRequest]) (*connect.Response[DeleteSettlementResponse], error) {
	return c.deleteSettlement.CallUnary(ctx, req)
}
