package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/api"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/auth"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/ledger"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/middleware"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

// TripService implements api.TripServiceHandler.
type TripService struct {
	store storage.Store
}

var _ api.TripServiceHandler = (*TripService)(nil)

// NewTripService creates a TripService with the given storage backend.
func NewTripService(store storage.Store) *TripService {
	return &TripService{store: store}
}

// CreateTrip creates a trip owned by the caller.
func (s *TripService) CreateTrip(ctx context.Context, req *connect.Request[api.CreateTripRequest]) (*connect.Response[api.CreateTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateTrip request received", "name", req.Msg.Name, "base_currency", req.Msg.BaseCurrency, "user_id", userID)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, toConnectError(fmt.Errorf("%w: trip name is required", ledger.ErrInvalidInput))
	}
	base, err := currency.NormalizeCode(req.Msg.BaseCurrency)
	if err != nil {
		return nil, toConnectError(err)
	}

	trip := &models.Trip{Name: name, BaseCurrency: base, CreatedBy: userID}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		slog.Error("CreateTrip failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Trip created", "trip_id", trip.ID, "invite_code", trip.InviteCode)

	out, err := s.tripWithMembers(ctx, trip)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CreateTripResponse{Trip: out}), nil
}

// JoinTrip adds the caller to the trip with the given invite code. Joining a
// trip twice is not an error.
func (s *TripService) JoinTrip(ctx context.Context, req *connect.Request[api.JoinTripRequest]) (*connect.Response[api.JoinTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("JoinTrip request received", "user_id", userID)

	if strings.TrimSpace(req.Msg.InviteCode) == "" {
		return nil, toConnectError(fmt.Errorf("%w: invite code is required", ledger.ErrInvalidInput))
	}

	trip, err := s.store.GetTripByInviteCode(ctx, req.Msg.InviteCode)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, toConnectError(fmt.Errorf("%w: unknown invite code", ledger.ErrTripNotFound))
	}
	if err != nil {
		slog.Error("JoinTrip lookup failed", "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.AddTripMember(ctx, trip.ID, userID); err != nil {
		slog.Error("JoinTrip failed", "trip_id", trip.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("User joined trip", "trip_id", trip.ID, "user_id", userID)

	out, err := s.tripWithMembers(ctx, trip)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.JoinTripResponse{Trip: out}), nil
}

// GetTrip returns a trip and its members. Only members may read it.
func (s *TripService) GetTrip(ctx context.Context, req *connect.Request[api.GetTripRequest]) (*connect.Response[api.GetTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetTrip request received", "trip_id", req.Msg.TripID, "user_id", userID)

	trip, err := s.store.GetTrip(ctx, req.Msg.TripID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, toConnectError(fmt.Errorf("%w: %s", ledger.ErrTripNotFound, req.Msg.TripID))
	}
	if err != nil {
		return nil, toConnectError(err)
	}

	out, err := s.tripWithMembers(ctx, trip)
	if err != nil {
		return nil, toConnectError(err)
	}

	isMember := false
	for _, m := range out.Members {
		if m.UserID == userID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, toConnectError(fmt.Errorf("%w: %s", ledger.ErrNotTripMember, userID))
	}

	return connect.NewResponse(&api.GetTripResponse{Trip: out}), nil
}

// tripWithMembers loads the member list and display names. Members without
// an account row are listed without a name.
func (s *TripService) tripWithMembers(ctx context.Context, trip *models.Trip) (*api.Trip, error) {
	members, err := s.store.ListTripMembers(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	out := &api.Trip{
		ID:           trip.ID,
		Name:         trip.Name,
		BaseCurrency: trip.BaseCurrency,
		InviteCode:   trip.InviteCode,
		CreatedBy:    trip.CreatedBy,
		CreatedAt:    trip.CreatedAt,
		Members:      make([]*api.Member, 0, len(members)),
	}
	for _, m := range members {
		member := &api.Member{UserID: m.UserID, JoinedAt: m.JoinedAt}
		user, err := s.store.GetUserByID(ctx, m.UserID)
		switch {
		case err == nil:
			member.DisplayName = user.DisplayName
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
		out.Members = append(out.Members, member)
	}
	return out, nil
}

// callerID returns the authenticated user or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}
