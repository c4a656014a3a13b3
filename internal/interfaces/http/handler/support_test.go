package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/domain/support"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

func TestSupportHandler_TicketLifecycle(t *testing.T) {
	h := newHarness(t)

	opened := h.do(http.MethodPost, "/api/v1/support/tickets", TicketRequest{Subject: "Licence not activating"}, h.customer())
	require.Equal(t, http.StatusCreated, opened.Code, opened.Body.String())
	ticket := data[support.Ticket](opened)
	assert.Equal(t, support.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, support.TicketStatusOpen, ticket.Status)

	admin := h.admin()
	moved := h.do(http.MethodPut, "/api/v1/admin/tickets/"+ticket.ID+"/status", StatusRequest{Status: string(support.TicketStatusClosed)}, admin)
	require.Equal(t, http.StatusOK, moved.Code, moved.Body.String())

	tickets := data[[]support.Ticket](h.do(http.MethodGet, "/api/v1/admin/tickets", nil, admin))
	require.Len(t, tickets, 2)
	for _, tk := range tickets {
		if tk.ID == ticket.ID {
			assert.Equal(t, support.TicketStatusClosed, tk.Status)
		}
	}
}

func TestSupportHandler_TicketRequiresSession(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/support/tickets", TicketRequest{Subject: "x"}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSupportHandler_Feedback(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		req    FeedbackRequest
		status int
	}{
		{"valid", FeedbackRequest{Name: "Meera", Email: "meera@example.com", Rating: 5, Comment: "Saved hours"}, http.StatusCreated},
		{"rating too high", FeedbackRequest{Name: "Meera", Email: "meera@example.com", Rating: 6}, http.StatusBadRequest},
		{"missing email", FeedbackRequest{Name: "Meera", Rating: 4}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/api/v1/feedback", tt.req, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	feedbacks := data[[]support.Feedback](h.do(http.MethodGet, "/api/v1/admin/feedback", nil, h.admin()))
	require.Len(t, feedbacks, 1)
	assert.Equal(t, 5, feedbacks[0].Rating)
}

func TestSupportHandler_TicketStreamAcceptsQueryToken(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.engine)
	t.Cleanup(srv.Close)

	token := strings.TrimPrefix(h.admin()[middleware.AuthHeaderKey], "Bearer ")
	event, payload := firstEvent(t, srv.URL+"/api/v1/admin/tickets/stream?access_token="+url.QueryEscape(token))

	assert.Equal(t, "tickets", event)
	var tickets []support.Ticket
	require.NoError(t, json.Unmarshal([]byte(payload), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, "tkt_1", tickets[0].ID)
}
