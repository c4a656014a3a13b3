package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsupport "github.com/tallypro/storefront/internal/application/support"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/domain/support"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// SupportHandler serves tickets and feedback
type SupportHandler struct {
	BaseHandler
	support   *appsupport.Service
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewSupportHandler creates a new SupportHandler
func NewSupportHandler(service *appsupport.Service, heartbeat time.Duration, logger *zap.Logger) *SupportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupportHandler{support: service, heartbeat: heartbeat, logger: logger}
}

// TicketRequest opens a support ticket
type TicketRequest struct {
	Subject  string `json:"subject" binding:"required,max=200"`
	Priority string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

// FeedbackRequest leaves a rating
type FeedbackRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// StatusRequest changes the status of a ticket, order or user
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OpenTicket handles POST /api/v1/support/tickets
// @ID           openTicket
// @Summary      Open a support ticket
// @Tags         support
// @Accept       json
// @Produce      json
// @Param        request body TicketRequest true "Request body"
// @Success      201 {object} dto.Response{data=support.Ticket}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/support/tickets [post]
func (h *SupportHandler) OpenTicket(c *gin.Context) {
	var req TicketRequest
	if !h.BindJSON(c, &req) {
		return
	}
	priority := support.TicketPriority(req.Priority)
	if priority == "" {
		priority = support.TicketPriorityMedium
	}
	ticket, err := h.support.OpenTicket(c.Request.Context(), middleware.GetUserID(c), req.Subject, priority)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ticket)
}

// LeaveFeedback handles POST /api/v1/feedback
// @ID           leaveFeedback
// @Summary      Leave feedback
// @Tags         support
// @Accept       json
// @Produce      json
// @Param        request body FeedbackRequest true "Request body"
// @Success      201 {object} dto.Response{data=support.Feedback}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/feedback [post]
func (h *SupportHandler) LeaveFeedback(c *gin.Context) {
	var req FeedbackRequest
	if !h.BindJSON(c, &req) {
		return
	}
	feedback, err := h.support.LeaveFeedback(c.Request.Context(), req.Name, req.Email, req.Rating, req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, feedback)
}

// Tickets handles GET /api/v1/admin/tickets
// @ID           listTickets
// @Summary      List support tickets
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=[]support.Ticket}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/tickets [get]
func (h *SupportHandler) Tickets(c *gin.Context) {
	tickets, err := h.support.Tickets(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, tickets)
}

// SetTicketStatus handles PUT /api/v1/admin/tickets/:id/status
// @ID           setTicketStatus
// @Summary      Change a ticket status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Ticket ID"
// @Param        request body StatusRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/tickets/{id}/status [put]
func (h *SupportHandler) SetTicketStatus(c *gin.Context) {
	var req StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.support.SetTicketStatus(c.Request.Context(), c.Param("id"), support.TicketStatus(req.Status)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": c.Param("id"), "status": req.Status})
}

// StreamTickets handles GET /api/v1/admin/tickets/stream
// @ID           streamTickets
// @Summary      Stream support tickets
// @Tags         admin
// @Produce      text/event-stream
// @Success      200 {string} string "Server-Sent Events"
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/tickets/stream [get]
func (h *SupportHandler) StreamTickets(c *gin.Context) {
	Stream(c, func(ctx context.Context, fn func([]support.Ticket)) (store.Unsubscribe, error) {
		return h.support.SubscribeTickets(ctx, fn)
	}, StreamConfig{Event: "tickets", Heartbeat: h.heartbeat, Logger: h.logger})
}

// Feedbacks handles GET /api/v1/admin/feedback
// @ID           listFeedback
// @Summary      List feedback
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=[]support.Feedback}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/feedback [get]
func (h *SupportHandler) Feedbacks(c *gin.Context) {
	feedbacks, err := h.support.Feedbacks(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, feedbacks)
}

// StreamFeedbacks handles GET /api/v1/admin/feedback/stream
// @ID           streamFeedback
// @Summary      Stream feedback
// @Tags         admin
// @Produce      text/event-stream
// @Success      200 {string} string "Server-Sent Events"
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/feedback/stream [get]
func (h *SupportHandler) StreamFeedbacks(c *gin.Context) {
	Stream(c, func(ctx context.Context, fn func([]support.Feedback)) (store.Unsubscribe, error) {
		return h.support.SubscribeFeedbacks(ctx, fn)
	}, StreamConfig{Event: "feedback", Heartbeat: h.heartbeat, Logger: h.logger})
}
