package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/middleware"
	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errInsufficientStock = errors.New("insufficient stock")

// SaleHandler records checkouts. The whole write sequence — stock decrement,
// stock movement, sale, bill — runs in one transaction against the tenant's
// database; no partial application survives a failure.
type SaleHandler struct{}

// NewSaleHandler creates the sale handler.
func NewSaleHandler() *SaleHandler {
	return &SaleHandler{}
}

// Create records one completed sale.
func (h *SaleHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var req struct {
		PaymentMethodID uint `json:"payment_method_id"`
		Items           []struct {
			ProductID uint `json:"product_id"`
			Quantity  int  `json:"quantity"`
		} `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one item is required"})
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "item quantity must be positive"})
		}
	}

	var createdBy string
	if claims, ok := middleware.User(c); ok {
		createdBy = claims.UserID
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var sale model.Sale
	var bill model.Bill
	err := db.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		var method model.PaymentMethod
		if err := tx.Where("id = ? AND active = ?", req.PaymentMethodID, true).First(&method).Error; err != nil {
			return fmt.Errorf("payment method %d: %w", req.PaymentMethodID, err)
		}

		sale = model.Sale{PaymentMethodID: method.ID, CreatedBy: createdBy}
		var total float64

		for _, item := range req.Items {
			var product model.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}

			// Conditional decrement keeps this safe under concurrent sales:
			// zero rows affected means someone else took the stock first.
			res := tx.Model(&model.Product{}).
				Where("id = ? AND stock_qty >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("product %d: %w", item.ProductID, errInsufficientStock)
			}

			lineTotal := float64(item.Quantity) * product.Price
			total += lineTotal
			sale.Items = append(sale.Items, model.SaleItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
				LineTotal: lineTotal,
			})
		}

		sale.Total = total
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		for _, item := range sale.Items {
			movement := model.StockMovement{
				ProductID: item.ProductID,
				Quantity:  -item.Quantity,
				Reason:    "sale",
				SaleID:    &sale.ID,
				CreatedBy: createdBy,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		bill = model.Bill{
			SaleID:   sale.ID,
			BillNo:   fmt.Sprintf("B%s-%06d", time.Now().Format("20060102"), sale.ID),
			Amount:   sale.Total,
			IssuedAt: time.Now(),
		}
		return tx.Create(&bill).Error
	})
	if err != nil {
		if errors.Is(err, errInsufficientStock) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient stock"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "referenced entity not found"})
		}
		log.Error("sale creation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sale creation failed"})
	}

	prometheus.SaleCounter.Inc()
	log.Info("sale recorded",
		zap.Uint("sale_id", sale.ID),
		zap.Float64("total", sale.Total),
		zap.String("bill_no", bill.BillNo))

	return c.JSON(http.StatusCreated, echo.Map{
		"sale": sale,
		"bill": bill,
	})
}

// Get returns one sale with its items.
func (h *SaleHandler) Get(c echo.Context) error {
	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	var sale model.Sale
	if err := db.WithContext(c.Request().Context()).Preload("Items").First(&sale, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}
	return c.JSON(http.StatusOK, sale)
}
