package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/dto"
	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
)

type LendingHandler struct {
	svc service.LendingService
}

func NewLendingHandler(svc service.LendingService) *LendingHandler {
	return &LendingHandler{svc: svc}
}

func (h *LendingHandler) RegisterRequestRoutes(rg *gin.RouterGroup, submitLimit gin.HandlerFunc) {
	leader := middleware.RequireRole(models.RoleChapterLeader)

	rg.POST("", submitLimit, h.SubmitRequest)
	rg.GET("", leader, h.ChapterRequests)
	rg.GET("/mine", h.OwnRequests)
	rg.GET("/reminders", h.Reminders)
	rg.GET("/pickups", h.Pickups)
	rg.DELETE("/resolved", h.ClearResolved)
	rg.POST("/:id/approve", leader, h.approve(lifecycle.KindRequest))
	rg.POST("/:id/reject", leader, h.reject(lifecycle.KindRequest))
	rg.POST("/:id/return", leader, h.MarkReturned)
}

func (h *LendingHandler) RegisterDonationRoutes(rg *gin.RouterGroup, submitLimit gin.HandlerFunc) {
	leader := middleware.RequireRole(models.RoleChapterLeader)

	rg.POST("", submitLimit, h.SubmitDonation)
	rg.GET("", h.Donations)
	rg.POST("/:id/approve", leader, h.approve(lifecycle.KindDonation))
	rg.POST("/:id/reject", leader, h.reject(lifecycle.KindDonation))
}

func (h *LendingHandler) SubmitRequest(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	created, err := h.svc.SubmitRequest(ctx, a, req.BookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *LendingHandler) SubmitDonation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	created, err := h.svc.SubmitDonation(ctx, a, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *LendingHandler) approve(kind lifecycle.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		ref, err := lifecycle.ParseRef(string(kind), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		var req dto.ApproveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := h.svc.Approve(ctx, a, ref, req.ToSchedule()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": string(kind) + " approved"})
	}
}

func (h *LendingHandler) reject(kind lifecycle.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		ref, err := lifecycle.ParseRef(string(kind), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := h.svc.Reject(ctx, a, ref); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": string(kind) + " rejected"})
	}
}

func (h *LendingHandler) MarkReturned(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.MarkReturned(ctx, a, lifecycle.RequestRef(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request marked returned"})
}

// ClearResolved answers 200 when every deletion succeeded and 207 with the
// per-item failures otherwise.
func (h *LendingHandler) ClearResolved(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.ClearResolved(ctx, a)
	if err != nil && len(res.Failed) == 0 {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		c.Error(err)
		status = http.StatusMultiStatus
	}
	c.JSON(status, dto.FromClearResult(res))
}

func (h *LendingHandler) OwnRequests(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reqs, err := h.svc.OwnRequests(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RequestListResponse{Items: reqs, Total: len(reqs)})
}

func (h *LendingHandler) ChapterRequests(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reqs, err := h.svc.ChapterRequests(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RequestListResponse{Items: reqs, Total: len(reqs)})
}

func (h *LendingHandler) Donations(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	dons, err := h.svc.Donations(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DonationListResponse{Items: dons, Total: len(dons)})
}

func (h *LendingHandler) Reminders(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	rems, err := h.svc.Reminders(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReminderListResponse{Items: rems, Total: len(rems)})
}

func (h *LendingHandler) Pickups(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	pickups, err := h.svc.PickupNotices(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PickupListResponse{Items: pickups, Total: len(pickups)})
}
