package support

import (
	"strings"
	"time"

	"github.com/tallypro/storefront/internal/domain/shared"
)

// Feedback is an append-only customer review
type Feedback struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Date      time.Time `json:"date"`
}

// NewFeedback validates a rating of 1 to 5
func NewFeedback(id, userName, userEmail string, rating int, comment string) (*Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, shared.NewDomainError("INVALID_RATING", "Rating must be between 1 and 5")
	}
	if strings.TrimSpace(userName) == "" {
		return nil, shared.NewDomainError("INVALID_FEEDBACK", "Name cannot be empty")
	}
	if len(comment) > 2000 {
		return nil, shared.NewDomainError("INVALID_FEEDBACK", "Comment cannot exceed 2000 characters")
	}
	return &Feedback{
		ID:        id,
		UserName:  strings.TrimSpace(userName),
		UserEmail: strings.ToLower(strings.TrimSpace(userEmail)),
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		Date:      time.Now().UTC(),
	}, nil
}
