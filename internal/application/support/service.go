// Package support holds ticket and feedback use cases.
package support

import (
	"context"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/domain/support"
)

// Service opens tickets, collects feedback and lets administrators triage both
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a support service
func NewService(s store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, logger: logger}
}

// OpenTicket files a ticket for userID
func (s *Service) OpenTicket(ctx context.Context, userID, subject string, priority support.TicketPriority) (*support.Ticket, error) {
	ticket, err := support.NewTicket("", userID, subject, priority)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Ticket opened",
		zap.String("ticket_id", created.ID),
		zap.String("user_id", userID),
		zap.String("priority", string(created.Priority)),
	)
	return created, nil
}

// Tickets lists every ticket, newest first
func (s *Service) Tickets(ctx context.Context) ([]support.Ticket, error) {
	return s.store.GetTickets(ctx)
}

// SetTicketStatus moves a ticket through open, in_progress and closed
func (s *Service) SetTicketStatus(ctx context.Context, ticketID string, status support.TicketStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown ticket status: "+string(status))
	}
	if err := s.store.UpdateTicketStatus(ctx, ticketID, status); err != nil {
		return err
	}
	s.logger.Info("Ticket status changed", zap.String("ticket_id", ticketID), zap.String("status", string(status)))
	return nil
}

// SubscribeTickets streams ticket snapshots
func (s *Service) SubscribeTickets(ctx context.Context, fn func([]support.Ticket)) (store.Unsubscribe, error) {
	return s.store.SubscribeTickets(ctx, fn)
}

// LeaveFeedback records a rating from a named visitor or customer
func (s *Service) LeaveFeedback(ctx context.Context, userName, userEmail string, rating int, comment string) (*support.Feedback, error) {
	feedback, err := support.NewFeedback("", userName, userEmail, rating, comment)
	if err != nil {
		return nil, err
	}
	created, err := s.store.AddFeedback(ctx, feedback)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Feedback received", zap.String("feedback_id", created.ID), zap.Int("rating", rating))
	return created, nil
}

// Feedbacks lists all feedback, newest first
func (s *Service) Feedbacks(ctx context.Context) ([]support.Feedback, error) {
	return s.store.GetFeedbacks(ctx)
}

// SubscribeFeedbacks streams feedback snapshots
func (s *Service) SubscribeFeedbacks(ctx context.Context, fn func([]support.Feedback)) (store.Unsubscribe, error) {
	return s.store.SubscribeFeedbacks(ctx, fn)
}
