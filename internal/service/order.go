package service

import (
	"context"
	"errors"
	"strings"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/query"
	"carparts-storefront/internal/repository"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

var errOrderMissing = apperr.NotFound("Order not found")

// OrderService backs the admin order pages.
type OrderService interface {
	List(ctx context.Context, params query.Params) (*query.Page[model.OrderSummary], error)
	Get(ctx context.Context, orderID int64) (*dto.OrderDetailResponse, error)
	UpdateStatus(ctx context.Context, orderID int64, req *dto.OrderStatusRequest) (*model.OrderSummary, error)
}

type orderServiceImpl struct {
	orderRepo repository.OrderRepository
	logger    *log.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, logger *log.Logger) OrderService {
	return &orderServiceImpl{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

func (s *orderServiceImpl) List(ctx context.Context, params query.Params) (*query.Page[model.OrderSummary], error) {
	page, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, storageErr("Failed to load orders", err)
	}
	return page, nil
}

// Get returns the order with its line items. Items that fail to load are
// reported in ItemsError; the order itself is still returned.
func (s *orderServiceImpl) Get(ctx context.Context, orderID int64) (*dto.OrderDetailResponse, error) {
	summary, err := s.summary(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resp := &dto.OrderDetailResponse{Order: summary, Items: []*model.OrderItem{}}
	items, err := s.orderRepo.GetOrderItems(ctx, nil, orderID)
	if err != nil {
		s.logger.Warnf("load items for order %d: %v", orderID, err)
		resp.ItemsError = "Failed to load order items"
		return resp, nil
	}
	resp.Items = items
	return resp, nil
}

// UpdateStatus accepts any known status; transitions are not restricted.
func (s *orderServiceImpl) UpdateStatus(ctx context.Context, orderID int64, req *dto.OrderStatusRequest) (*model.OrderSummary, error) {
	if orderID <= 0 {
		return nil, apperr.Validation("Valid id parameter is required")
	}

	status := model.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status value")
	}

	err := s.orderRepo.UpdateStatus(ctx, orderID, status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errOrderMissing
	}
	if err != nil {
		return nil, storageErr("Failed to update order status", err)
	}

	return s.summary(ctx, orderID)
}

func (s *orderServiceImpl) summary(ctx context.Context, orderID int64) (*model.OrderSummary, error) {
	if orderID <= 0 {
		return nil, apperr.Validation("Valid id parameter is required")
	}

	summary, err := s.orderRepo.FindSummary(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errOrderMissing
	}
	if err != nil {
		return nil, storageErr("Failed to load order", err)
	}
	return summary, nil
}
