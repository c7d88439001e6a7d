// README: Payment query service; row creation and confirmation are driven
// by the booking lifecycle.
package payment

import (
	"context"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/types"
)

type Store interface {
	Get(ctx context.Context, id types.ID) (*Payment, error)
	ListByBooking(ctx context.Context, bookingID types.ID) ([]*Payment, error)
	ListByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]*Payment, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Payment, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, id, customerID types.ID) (*Payment, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CustomerID != customerID {
		return nil, types.Forbidden("Cannot access another user's payment")
	}
	return p, nil
}

func (s *Service) ListByBooking(ctx context.Context, bookingID, customerID types.ID) ([]*Payment, error) {
	payments, err := s.store.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.CustomerID != customerID {
			return nil, types.Forbidden("Cannot access another user's payment")
		}
	}
	return payments, nil
}

func (s *Service) ListMine(ctx context.Context, customerID types.ID, limit, offset int) ([]*Payment, error) {
	return s.store.ListByCustomer(ctx, customerID, limit, offset)
}

// ListRefunding lists payments awaiting a manual refund, for admins.
func (s *Service) ListRefunding(ctx context.Context, limit, offset int) ([]*Payment, error) {
	return s.store.ListByStatus(ctx, StatusRefunding, limit, offset)
}
