package local

import (
	"context"

	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/domain/support"
)

// GetTickets returns all tickets, newest first
func (s *Store) GetTickets(ctx context.Context) ([]support.Ticket, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return load[support.Ticket](ctx, s, keyTickets)
}

// CreateTicket stores t, assigning an ID when it has none
func (s *Store) CreateTicket(ctx context.Context, t *support.Ticket) (*support.Ticket, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	created := *t
	if created.ID == "" {
		created.ID = s.newID("tkt")
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := load[support.Ticket](ctx, s, keyTickets)
	if err != nil {
		return nil, err
	}
	if err := save(ctx, s, keyTickets, prepend(tickets, created)); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTicketStatus changes the status of a ticket
func (s *Store) UpdateTicketStatus(ctx context.Context, ticketID string, status support.TicketStatus) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := load[support.Ticket](ctx, s, keyTickets)
	if err != nil {
		return err
	}
	for i := range tickets {
		if tickets[i].ID == ticketID {
			if err := tickets[i].SetStatus(status); err != nil {
				return err
			}
			return save(ctx, s, keyTickets, tickets)
		}
	}
	return shared.ErrNotFound
}

// SubscribeTickets delivers the current snapshot once
func (s *Store) SubscribeTickets(ctx context.Context, fn func([]support.Ticket)) (store.Unsubscribe, error) {
	s.mu.RLock()
	tickets, err := load[support.Ticket](ctx, s, keyTickets)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	fn(tickets)
	return func() {}, nil
}

// GetFeedbacks returns all feedback, newest first
func (s *Store) GetFeedbacks(ctx context.Context) ([]support.Feedback, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return load[support.Feedback](ctx, s, keyFeedbacks)
}

// AddFeedback appends a review
func (s *Store) AddFeedback(ctx context.Context, f *support.Feedback) (*support.Feedback, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	created := *f
	if created.ID == "" {
		created.ID = s.newID("fb")
	}
	if created.Date.IsZero() {
		created.Date = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feedbacks, err := load[support.Feedback](ctx, s, keyFeedbacks)
	if err != nil {
		return nil, err
	}
	if err := save(ctx, s, keyFeedbacks, prepend(feedbacks, created)); err != nil {
		return nil, err
	}
	return &created, nil
}

// SubscribeFeedbacks delivers the current snapshot once
func (s *Store) SubscribeFeedbacks(ctx context.Context, fn func([]support.Feedback)) (store.Unsubscribe, error) {
	s.mu.RLock()
	feedbacks, err := load[support.Feedback](ctx, s, keyFeedbacks)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	fn(feedbacks)
	return func() {}, nil
}
