package order

import (
	"context"
	"errors"
	"log"

	"github.com/VanderajLS/metier-backend/internal/apperr"
)

// StatusEventsPublisher receives lifecycle transitions. A nil publisher is a
// no-op.
type StatusEventsPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, o *Order, previous Status) error
}

// Service governs the persisted order's status state machine and the payment
// confirmation transition.
type Service struct {
	repo   Repository
	events StatusEventsPublisher
	logger *log.Logger
}

func NewService(repo Repository, events StatusEventsPublisher, logger *log.Logger) *Service {
	return &Service{repo: repo, events: events, logger: logger}
}

func (s *Service) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("order")
		}
		return nil, apperr.Internal(err)
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	if f.Status != "" {
		if _, ok := ParseStatus(f.Status); !ok {
			return nil, 0, apperr.Validationf("status", "invalid status %q", f.Status)
		}
	}
	orders, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return orders, total, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, apperr.Internal(err)
	}
	return st, nil
}

// SetStatus moves an order to newStatus. Any of the six statuses is accepted
// from any prior one; the shipped/delivered timestamps are stamped once.
func (s *Service) SetStatus(ctx context.Context, orderNumber, newStatus string) (*Order, error) {
	status, ok := ParseStatus(newStatus)
	if !ok {
		return nil, apperr.Validationf("status", "invalid status %q", newStatus)
	}

	o, err := s.repo.UpdateStatus(ctx, orderNumber, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("order")
		}
		return nil, apperr.Internal(err)
	}

	s.publishStatusChanged(ctx, o, "")
	return o, nil
}

// ConfirmPayment marks the order paid and forces status to confirmed, even
// from shipped/delivered/cancelled. That overwrite is the modeled behavior;
// it is logged loudly when it regresses a terminal status rather than
// silently changed here.
func (s *Service) ConfirmPayment(ctx context.Context, orderNumber, paymentReference string) (*Order, error) {
	o, prior, err := s.repo.ConfirmPayment(ctx, orderNumber, paymentReference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("order")
		}
		return nil, apperr.Internal(err)
	}

	if prior.Terminal() && s.logger != nil {
		s.logger.Printf("WARN payment confirmation moved order %s from terminal status %s to confirmed", o.OrderNumber, prior)
	}

	s.publishStatusChanged(ctx, o, prior)
	return o, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, o *Order, previous Status) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderStatusChanged(ctx, o, previous); err != nil && s.logger != nil {
		// events are best-effort; the status write has already committed
		s.logger.Printf("publish order status event: %v", err)
	}
}
