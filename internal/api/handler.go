package api

import (
	"fmt"
	"net/http"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	categories *service.CategoryTree
	orders     *service.OrderService
	catalog    *service.CatalogService
	env        string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	categories *service.CategoryTree,
	orders *service.OrderService,
	catalog *service.CatalogService,
	env string,
) *Handler {
	return &Handler{
		categories: categories,
		orders:     orders,
		catalog:    catalog,
		env:        env,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(identityMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/categories", h.createCategory)
		v1.GET("/categories/:id/breadcrumb", h.getBreadcrumb)
		v1.GET("/categories/:id/tree", h.getSubtree)
		v1.GET("/categories/:id/products", h.listProductsByCategory)
		v1.DELETE("/categories/:id", h.deleteSubtree)

		v1.POST("/products", h.createProduct)
		v1.GET("/products/:id", h.getProduct)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.GET("/orders/status/:status", h.getOrdersByStatus)

		v1.GET("/users/:id/orders", h.getOrdersByUser)
		v1.GET("/vendors/:id/orders", h.getVendorOrders)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createCategory(c *gin.Context) {
	var input service.CreateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondErr(c, "Invalid request body", fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}

	category, err := h.categories.CreateCategory(c.Request.Context(), &input)
	if err != nil {
		h.respondErr(c, "Error creating category", err)
		return
	}

	respondOK(c, http.StatusCreated, "Category created successfully", category)
}

func (h *Handler) getBreadcrumb(c *gin.Context) {
	trail, err := h.categories.GetBreadcrumb(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErr(c, "Failed to fetch breadcrumb", err)
		return
	}

	respondOK(c, http.StatusOK, "Breadcrumb fetched successfully", trail)
}

func (h *Handler) getSubtree(c *gin.Context) {
	root, err := h.categories.GetSubtree(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErr(c, "Failed to fetch category tree", err)
		return
	}

	respondOK(c, http.StatusOK, "Category tree fetched successfully", root)
}

func (h *Handler) deleteSubtree(c *gin.Context) {
	if err := h.categories.DeleteSubtree(c.Request.Context(), c.Param("id")); err != nil {
		h.respondErr(c, "Failed to delete category", err)
		return
	}

	respondOK(c, http.StatusOK, "Category and its children deleted successfully", nil)
}

func (h *Handler) createProduct(c *gin.Context) {
	var input service.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondErr(c, "Invalid request body", fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		h.respondErr(c, "Error creating product", err)
		return
	}

	respondOK(c, http.StatusCreated, "Product created successfully", product)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErr(c, "Failed to fetch product", err)
		return
	}

	respondOK(c, http.StatusOK, "Product fetched successfully", product)
}

func (h *Handler) listProductsByCategory(c *gin.Context) {
	page, perPage := pageParams(c)
	products, pagination, err := h.catalog.ListProductsByCategory(c.Request.Context(), c.Param("id"), page, perPage)
	if err != nil {
		h.respondErr(c, "Failed to fetch products", err)
		return
	}

	respondOK(c, http.StatusOK, "Products fetched successfully", gin.H{
		"products":   products,
		"pagination": pagination,
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondErr(c, "Invalid request body", fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}

	if caller := callerID(c); caller != "" && caller != req.UserID {
		h.respondErr(c, "Cannot place an order for another user", models.ErrForbidden)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondErr(c, "Order creation failed", err)
		return
	}

	respondOK(c, http.StatusCreated, "Order created successfully", order)
}

func (h *Handler) listOrders(c *gin.Context) {
	page, perPage := pageParams(c)
	orders, pagination, err := h.orders.ListOrders(c.Request.Context(), page, perPage)
	if err != nil {
		h.respondErr(c, "Failed to fetch orders", err)
		return
	}

	respondOK(c, http.StatusOK, "Orders fetched successfully", gin.H{
		"orders":     orders,
		"pagination": pagination,
	})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErr(c, "Failed to fetch order", err)
		return
	}

	respondOK(c, http.StatusOK, "Order fetched successfully", order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErr(c, "Failed to cancel the order", err)
		return
	}

	respondOK(c, http.StatusOK, "Order cancelled successfully", order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondErr(c, "Invalid request body", fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		h.respondErr(c, "Order status update failed", err)
		return
	}

	respondOK(c, http.StatusOK, fmt.Sprintf("Order status updated to %s", body.Status), order)
}

func (h *Handler) getOrdersByStatus(c *gin.Context) {
	orders, err := h.orders.GetOrdersByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		h.respondErr(c, "Failed to fetch orders by status", err)
		return
	}

	respondOK(c, http.StatusOK, "Orders fetched successfully", orders)
}

func (h *Handler) getOrdersByUser(c *gin.Context) {
	userID := c.Param("id")
	if caller := callerID(c); caller != "" && caller != userID {
		h.respondErr(c, "Cannot view another user's orders", models.ErrForbidden)
		return
	}

	orders, err := h.orders.GetOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		h.respondErr(c, "Failed to fetch orders for this user", err)
		return
	}

	respondOK(c, http.StatusOK, "Orders fetched successfully", orders)
}

func (h *Handler) getVendorOrders(c *gin.Context) {
	page, perPage := pageParams(c)
	orders, pagination, err := h.orders.GetVendorOrders(c.Request.Context(), c.Param("id"), page, perPage)
	if err != nil {
		h.respondErr(c, "Failed to fetch vendor orders", err)
		return
	}

	respondOK(c, http.StatusOK, "Vendor orders fetched successfully", gin.H{
		"orders":     orders,
		"pagination": pagination,
	})
}
