package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/middleware"
	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
)

// ProductHandler serves the shop's product catalog. Every query runs against
// the handle resolved for this request; there is no other path to tenant data.
type ProductHandler struct{}

// NewProductHandler creates the product handler.
func NewProductHandler() *ProductHandler {
	return &ProductHandler{}
}

// Create adds a product to the shop's catalog.
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var req struct {
		SKU        string  `json:"sku"`
		Name       string  `json:"name"`
		CategoryID *uint   `json:"category_id,omitempty"`
		Price      float64 `json:"price"`
		StockQty   int     `json:"stock_qty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.SKU == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sku and name are required"})
	}
	if req.Price < 0 || req.StockQty < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price and stock_qty must not be negative"})
	}

	var createdBy string
	if claims, ok := middleware.User(c); ok {
		createdBy = claims.UserID
	}

	product := model.Product{
		SKU:        req.SKU,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Price:      req.Price,
		StockQty:   req.StockQty,
		CreatedBy:  createdBy,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.WithContext(c.Request().Context()).Create(&product).Error; err != nil {
		log.Error("product creation failed", zap.String("sku", req.SKU), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product creation failed"})
	}

	// Initial stock is part of the ledger too.
	if req.StockQty > 0 {
		movement := model.StockMovement{
			ProductID: product.ID,
			Quantity:  req.StockQty,
			Reason:    "initial",
			CreatedBy: createdBy,
		}
		if err := db.WithContext(c.Request().Context()).Create(&movement).Error; err != nil {
			log.Warn("initial stock movement not recorded", zap.Uint("product_id", product.ID), zap.Error(err))
		}
	}

	return c.JSON(http.StatusCreated, product)
}

// List returns the shop's products, optionally filtered by name.
func (h *ProductHandler) List(c echo.Context) error {
	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	query := db.WithContext(c.Request().Context()).Order("created_at DESC")
	if name := c.QueryParam("name"); name != "" {
		query = query.Where("name ILIKE ?", "%"+name+"%")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.FromEcho(c).Error("product listing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, products)
}

// Get returns one product by ID.
func (h *ProductHandler) Get(c echo.Context) error {
	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product ID"})
	}

	var product model.Product
	if err := db.WithContext(c.Request().Context()).First(&product, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, product)
}
