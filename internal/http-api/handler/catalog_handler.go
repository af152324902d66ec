package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/dto"
	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
	"bookshare/internal/models"
)

type CatalogHandler struct {
	svc service.CatalogService
}

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	leader := middleware.RequireRole(models.RoleChapterLeader)

	rg.GET("", h.List)
	rg.GET("/chapter", leader, h.ChapterBooks)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", leader, h.Update)
	rg.DELETE("/:id", leader, h.Delete)
}

func (h *CatalogHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	books, err := h.svc.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookListResponse{Items: books, Total: len(books)})
}

func (h *CatalogHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := h.svc.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *CatalogHandler) ChapterBooks(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	books, err := h.svc.ChapterBooks(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookListResponse{Items: books, Total: len(books)})
}

func (h *CatalogHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := h.svc.Update(ctx, a, c.Param("id"), req.ToUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}
