package signup

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	subs := rg.Group("/subscribers", authMW)
	subs.GET("", h.listSubscribers)
	subs.GET("/:id", h.getSubscriber)
	subs.POST("", h.registerSubscriber)
	subs.PUT("/:id", h.confirmSubscriber)
	subs.DELETE("/:id", h.unsubscribe)

	tickets := rg.Group("/tickets", authMW)
	tickets.GET("", h.listTickets)
	tickets.GET("/:eventId", h.listTickets)
	tickets.GET("/:eventId/:ticketId", h.getTicket)
	tickets.POST("", h.registerTicket)
	tickets.PUT("/:eventId/:ticketId", h.confirmTicket)
	tickets.DELETE("/:eventId/:ticketId", h.cancelTicket)

	rg.POST("/feedback", authMW, h.feedback)
}

// GET /subscribers?confirmed=true
func (h *Handler) listSubscribers(c *gin.Context) {
	confirmedOnly, _ := strconv.ParseBool(c.Query("confirmed"))
	subs, err := h.svc.ListSubscribers(c.Request.Context(), confirmedOnly)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, subs)
}

// GET /subscribers/:id
func (h *Handler) getSubscriber(c *gin.Context) {
	sub, err := h.svc.GetSubscriber(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// POST /subscribers
func (h *Handler) registerSubscriber(c *gin.Context) {
	var dto SubscriberDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	sub, created, err := h.svc.RegisterSubscriber(c.Request.Context(), dto.Email)
	if err != nil {
		response.Partial(c, err, sub)
		return
	}
	if created {
		response.Created(c, sub)
		return
	}
	response.OK(c, sub)
}

// PUT /subscribers/:id
func (h *Handler) confirmSubscriber(c *gin.Context) {
	var dto ConfirmDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	sub, err := h.svc.ConfirmSubscriber(c.Request.Context(), c.Param("id"), dto.Token)
	if err != nil {
		response.Partial(c, err, sub)
		return
	}
	response.OK(c, sub)
}

// DELETE /subscribers/:id
func (h *Handler) unsubscribe(c *gin.Context) {
	sub, err := h.svc.UnsubscribeSubscriber(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// GET /tickets, GET /tickets/:eventId
func (h *Handler) listTickets(c *gin.Context) {
	var eventID int64
	if raw := c.Param("eventId"); raw != "" {
		id, ok := parseEventID(c)
		if !ok {
			return
		}
		eventID = id
	}
	tickets, err := h.svc.ListTickets(c.Request.Context(), eventID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tickets)
}

// GET /tickets/:eventId/:ticketId
func (h *Handler) getTicket(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	t, err := h.svc.GetTicket(c.Request.Context(), eventID, c.Param("ticketId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// POST /tickets
func (h *Handler) registerTicket(c *gin.Context) {
	var dto TicketDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	t, created, err := h.svc.RegisterTicket(c.Request.Context(), TicketRequest{
		EventID:   dto.EventID,
		Email:     dto.Email,
		Name:      dto.Name,
		Subscribe: dto.Subscribe,
		Event:     dto.EventMeta,
	})
	if err != nil {
		response.Partial(c, err, t)
		return
	}
	if created {
		response.Created(c, t)
		return
	}
	response.OK(c, t)
}

// PUT /tickets/:eventId/:ticketId
func (h *Handler) confirmTicket(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	var dto ConfirmTicketDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	t, err := h.svc.ConfirmTicket(c.Request.Context(), eventID, c.Param("ticketId"), dto.Token, dto.EventMeta)
	if err != nil {
		response.Partial(c, err, t)
		return
	}
	response.OK(c, t)
}

// DELETE /tickets/:eventId/:ticketId
func (h *Handler) cancelTicket(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	t, err := h.svc.CancelTicket(c.Request.Context(), eventID, c.Param("ticketId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// POST /feedback
func (h *Handler) feedback(c *gin.Context) {
	var dto FeedbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	if err := h.svc.SendFeedback(c.Request.Context(), dto.Name, dto.Feedback); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"sent": true})
}

func parseEventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("eventId"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "")
		return 0, false
	}
	return id, true
}
