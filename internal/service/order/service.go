package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/payments"
	orderrepo "storefront/internal/repository/order"
)

// ErrIllegalTransition is returned when a status change skips or reverses
// the order lifecycle.
var ErrIllegalTransition = errors.New("order: illegal status transition")

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
	UpdatePaymentByReference(ctx context.Context, reference string, payment domain.PaymentStatus, status *domain.OrderStatus) (*domain.Order, error)
}

type Service struct {
	repo   orderRepo
	logger *zap.Logger
}

func New(repo orderRepo, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logging.OrNop(logger).Named("orders")}
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetForUser returns the order only when userID owns it.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves an order along its lifecycle. Cancelling never
// restores coupon usage.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, current.Status, next)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)),
	)
	return updated, nil
}

// ApplyPaymentEvent records a gateway outcome against the order holding the
// session reference. A successful payment confirms a pending order.
func (s *Service) ApplyPaymentEvent(ctx context.Context, evt payments.Event) (*domain.Order, error) {
	var (
		payment domain.PaymentStatus
		status  *domain.OrderStatus
	)
	switch evt.Outcome {
	case payments.OutcomeSucceeded:
		confirmed := domain.OrderConfirmed
		payment, status = domain.PaymentCompleted, &confirmed
	case payments.OutcomeFailed:
		payment = domain.PaymentFailed
	default:
		return nil, nil
	}

	o, err := s.repo.UpdatePaymentByReference(ctx, evt.Reference, payment, status)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("payment event for unknown session",
				zap.String("event_id", evt.ID),
				zap.String("reference", evt.Reference),
				zap.String("order_id", evt.OrderID),
			)
		}
		return nil, err
	}
	if payment == domain.PaymentCompleted && o.Status == domain.OrderCancelled {
		s.logger.Warn("payment completed on cancelled order; needs reconciliation",
			zap.String("event_id", evt.ID),
			zap.String("order_id", o.ID),
			zap.String("reference", evt.Reference),
		)
	}
	s.logger.Info("payment recorded",
		zap.String("event_id", evt.ID),
		zap.String("order_id", o.ID),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}
