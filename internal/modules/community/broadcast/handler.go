package broadcast

import (
	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/pkg/response"
)

type NewsletterDTO struct {
	Template              string `json:"template" binding:"required"`
	ExcludeMembersEventID int64  `json:"excludeMembersEventId"`
}

type EventDTO struct {
	Template string `json:"template" binding:"required"`
	EventID  int64  `json:"eventId"  binding:"required,gt=0"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/broadcast", authMW)
	g.GET("/templates", h.templates)
	g.POST("/newsletter", h.newsletter)
	g.POST("/event", h.event)
}

// GET /broadcast/templates
func (h *Handler) templates(c *gin.Context) {
	response.OK(c, h.svc.Templates())
}

// POST /broadcast/newsletter
func (h *Handler) newsletter(c *gin.Context) {
	var dto NewsletterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	sent, err := h.svc.BroadcastNewsletter(c.Request.Context(), dto.Template, dto.ExcludeMembersEventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sent)
}

// POST /broadcast/event
func (h *Handler) event(c *gin.Context) {
	var dto EventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "")
		return
	}
	sent, err := h.svc.BroadcastEvent(c.Request.Context(), dto.Template, dto.EventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sent)
}
