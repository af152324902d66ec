package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/dto"
	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
	"bookshare/internal/models"
)

type OpportunityHandler struct {
	svc service.OpportunityService
}

func NewOpportunityHandler(svc service.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{svc: svc}
}

func (h *OpportunityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", middleware.RequireRole(models.RoleChapterLeader), h.Create)
	rg.POST("/:id/rsvp", h.RSVP)
}

func (h *OpportunityHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	ops, err := h.svc.List(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": ops, "total": len(ops)})
}

func (h *OpportunityHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	op, err := h.svc.Create(ctx, a, service.OpportunityInput{
		Title:       req.Title,
		Description: req.Description,
		NeededItems: req.NeededItems,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

// RSVP adds the caller to the volunteer set. Repeating it is harmless;
// "added" is false when the caller was already listed.
func (h *OpportunityHandler) RSVP(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	added, err := h.svc.RSVP(ctx, a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}
