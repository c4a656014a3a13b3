package support

import (
	"strings"
	"time"

	"github.com/tallypro/storefront/internal/domain/shared"
)

// TicketStatus represents the state of a support request
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsValid reports whether s is a known status
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority ranks a support request
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// IsValid reports whether p is a known priority
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is a customer support request
type Ticket struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Subject   string         `json:"subject"`
	Status    TicketStatus   `json:"status"`
	Priority  TicketPriority `json:"priority"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewTicket opens a ticket. An empty priority defaults to medium.
func NewTicket(id, userID, subject string, priority TicketPriority) (*Ticket, error) {
	subject = strings.TrimSpace(subject)
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_TICKET", "Ticket requires a user")
	}
	if subject == "" {
		return nil, shared.NewDomainError("INVALID_TICKET", "Subject cannot be empty")
	}
	if len(subject) > 200 {
		return nil, shared.NewDomainError("INVALID_TICKET", "Subject cannot exceed 200 characters")
	}
	if priority == "" {
		priority = TicketPriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRIORITY", "Unknown priority: "+string(priority))
	}
	return &Ticket{
		ID:        id,
		UserID:    userID,
		Subject:   subject,
		Status:    TicketStatusOpen,
		Priority:  priority,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetStatus updates the only mutable field of a ticket
func (t *Ticket) SetStatus(status TicketStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown ticket status: "+string(status))
	}
	t.Status = status
	return nil
}
