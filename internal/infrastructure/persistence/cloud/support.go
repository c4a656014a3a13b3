package cloud

import (
	"context"

	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/domain/support"
)

// GetTickets returns tickets, newest first
func (s *Store) GetTickets(ctx context.Context) ([]support.Ticket, error) {
	var rows []TicketModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	tickets := make([]support.Ticket, 0, len(rows))
	for i := range rows {
		tickets = append(tickets, rows[i].toDomain())
	}
	return tickets, nil
}

// CreateTicket stores t with a fresh id
func (s *Store) CreateTicket(ctx context.Context, t *support.Ticket) (*support.Ticket, error) {
	created := *t
	if created.ID == "" {
		created.ID = newID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now()
	}
	if created.Status == "" {
		created.Status = support.TicketStatusOpen
	}
	if err := s.db.WithContext(ctx).Create(&TicketModel{
		ID:        created.ID,
		UserID:    created.UserID,
		Subject:   created.Subject,
		Status:    string(created.Status),
		Priority:  string(created.Priority),
		CreatedAt: created.CreatedAt,
	}).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, CollectionTickets)
	return &created, nil
}

// UpdateTicketStatus changes the status of one ticket
func (s *Store) UpdateTicketStatus(ctx context.Context, ticketID string, status support.TicketStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown ticket status: "+string(status))
	}
	result := s.db.WithContext(ctx).Model(&TicketModel{}).
		Where("id = ?", ticketID).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	s.publish(ctx, CollectionTickets)
	return nil
}

// SubscribeTickets delivers tickets now and after every change
func (s *Store) SubscribeTickets(ctx context.Context, fn func([]support.Ticket)) (store.Unsubscribe, error) {
	return subscribe(ctx, s, CollectionTickets, s.GetTickets, fn)
}

// GetFeedbacks returns feedback, newest first
func (s *Store) GetFeedbacks(ctx context.Context) ([]support.Feedback, error) {
	var rows []FeedbackModel
	if err := s.db.WithContext(ctx).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	feedbacks := make([]support.Feedback, 0, len(rows))
	for i := range rows {
		feedbacks = append(feedbacks, rows[i].toDomain())
	}
	return feedbacks, nil
}

// AddFeedback appends f
func (s *Store) AddFeedback(ctx context.Context, f *support.Feedback) (*support.Feedback, error) {
	created := *f
	if created.ID == "" {
		created.ID = newID()
	}
	if created.Date.IsZero() {
		created.Date = s.now()
	}
	if err := s.db.WithContext(ctx).Create(&FeedbackModel{
		ID:        created.ID,
		UserName:  created.UserName,
		UserEmail: created.UserEmail,
		Rating:    created.Rating,
		Comment:   created.Comment,
		Date:      created.Date,
	}).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, CollectionFeedbacks)
	return &created, nil
}

// SubscribeFeedbacks delivers feedback now and after every change
func (s *Store) SubscribeFeedbacks(ctx context.Context, fn func([]support.Feedback)) (store.Unsubscribe, error) {
	return subscribe(ctx, s, CollectionFeedbacks, s.GetFeedbacks, fn)
}
