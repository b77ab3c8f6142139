package query

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/aggregate"
)

// Handler exposes the projections over HTTP for dashboards. Read-only.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(router *gin.Engine) {
	api := router.Group("/api/v1/analytics")
	api.GET("/users/:id", h.getUser)
	api.GET("/products/:id", h.getProduct)
	api.GET("/shops/:id", h.getShop)
	api.GET("/top-products", h.getTopProducts)

	router.GET("/health", h.health)
}

func (h *Handler) getUser(c *gin.Context) {
	report, err := h.service.GetUserReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, aggregate.ErrUserNotFound)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, aggregate.ErrProductNotFound)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) getShop(c *gin.Context) {
	shop, err := h.service.GetShop(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, aggregate.ErrShopNotFound)
		return
	}

	c.JSON(http.StatusOK, shop)
}

func (h *Handler) getTopProducts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	products, err := h.service.GetTopProducts(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) health(c *gin.Context) {
	healthy, deps := h.service.HealthCheck(c.Request.Context())

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"healthy":      healthy,
		"dependencies": deps,
	})
}

func (h *Handler) respondError(c *gin.Context, err, notFound error) {
	if notFound != nil && errors.Is(err, notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
		return
	}

	h.logger.Error("Query failed",
		zap.Error(err),
		zap.String("path", c.FullPath()),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
