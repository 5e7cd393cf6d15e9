// Package api serves the shopping list operations over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"kondate-shopper/internal/app"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the part of app.App the handlers need.
type Service interface {
	AggregateURLs(ctx context.Context, urls []string) (app.Outcome, error)
	Recompute(ctx context.Context, blocks []string) (app.Outcome, error)
	ScrapeOne(ctx context.Context, url string) (*menu.ScrapedPage, error)
	GetList(ctx context.Context, weekStartDate string) (*shopping.SavedList, error)
	SaveList(ctx context.Context, req app.SaveRequest) ([]shopping.Item, error)
	SetChecked(ctx context.Context, itemID string, checked bool) (*shopping.Item, error)
}

// Handler maps the JSON endpoints onto a Service and writes its errors
// as HTTP statuses.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes registers the shopping list routes under router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/aggregate", h.Aggregate)
	router.GET("/scrape", h.Scrape)

	list := router.Group("/list")
	{
		list.GET("", h.GetList)
		list.POST("", h.SaveList)
		list.PATCH("/check", h.Check)
	}
}

// Aggregate scrapes URLs and aggregates them, or re-aggregates given blocks.
// POST /api/aggregate
func (h *Handler) Aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.IngredientsData != nil {
		out, err := h.svc.Recompute(c.Request.Context(), req.IngredientsData)
		if errors.Is(err, app.ErrNothingToAggregate) {
			c.JSON(http.StatusOK, gin.H{"error": "No ingredients found to aggregate", "ingredients": []menu.Ingredient{}})
			return
		}
		if err != nil {
			h.logger.Error("recompute failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate shopping list"})
			return
		}
		c.JSON(http.StatusOK, toAggregateResponse(out))
		return
	}

	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URLs array is required"})
		return
	}

	out, err := h.svc.AggregateURLs(c.Request.Context(), req.URLs)
	if errors.Is(err, app.ErrNothingToAggregate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No ingredients found to aggregate", "recipes": out.Menus})
		return
	}
	if err != nil {
		h.logger.Error("aggregate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate shopping list"})
		return
	}
	c.JSON(http.StatusOK, toAggregateResponse(out))
}

// Scrape extracts one page.
// GET /api/scrape?url=
func (h *Handler) Scrape(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL parameter is required"})
		return
	}

	page, err := h.svc.ScrapeOne(c.Request.Context(), target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scrape data"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetList returns the stored list of a week.
// GET /api/list?weekStartDate=
func (h *Handler) GetList(c *gin.Context) {
	week := c.Query("weekStartDate")
	if week == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weekStartDate is required"})
		return
	}

	list, err := h.svc.GetList(c.Request.Context(), week)
	if errors.Is(err, shopping.ErrListNotFound) {
		c.JSON(http.StatusOK, getListResponse{Found: false})
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch shopping list", zap.String("week", week), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shopping list"})
		return
	}

	c.JSON(http.StatusOK, getListResponse{
		Found: true,
		Data: &listData{
			Recipes:     list.Recipes,
			ActiveDates: list.ActiveDates,
			Ingredients: list.Ingredients,
		},
	})
}

// SaveList replaces the stored list of a week. Checked flags are reset.
// POST /api/list
func (h *Handler) SaveList(c *gin.Context) {
	var req saveListRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.WeekStartDate == "" || req.RecipesData == nil || req.ActiveDates == nil || req.Ingredients == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	items, err := h.svc.SaveList(c.Request.Context(), app.SaveRequest{
		WeekStartDate: req.WeekStartDate,
		Recipes:       req.RecipesData,
		ActiveDates:   req.ActiveDates,
		Ingredients:   req.Ingredients,
	})
	if err != nil {
		h.logger.Error("failed to save shopping list", zap.String("week", req.WeekStartDate), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save shopping list"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ingredients": items})
}

// Check updates the purchased flag of one item.
// PATCH /api/list/check
func (h *Handler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID == "" || req.IsChecked == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid itemId / isChecked"})
		return
	}

	item, err := h.svc.SetChecked(c.Request.Context(), req.ItemID, *req.IsChecked)
	if errors.Is(err, shopping.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update check status", zap.String("item", req.ItemID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update check status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

func toAggregateResponse(out app.Outcome) aggregateResponse {
	return aggregateResponse{
		Ingredients:       out.Ingredients,
		Recipes:           out.Menus,
		Model:             out.Model,
		Fallback:          out.Fallback,
		FlaggedCategories: out.FlaggedCategories,
	}
}
