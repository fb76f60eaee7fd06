package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/money"
	"carparts-storefront/internal/query"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/storage"
	"carparts-storefront/internal/validate"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ProductService serves the public catalog and the admin product pages.
type ProductService interface {
	List(ctx context.Context, params query.Params) (*query.Page[model.Product], error)
	Get(ctx context.Context, productID int64) (*model.Product, error)
	Categories(ctx context.Context) ([]*model.CategorySummary, error)
	Create(ctx context.Context, req *dto.ProductRequest) (*model.Product, error)
	Update(ctx context.Context, productID int64, req *dto.ProductRequest) (*model.Product, error)
	Delete(ctx context.Context, productID int64) error
	UploadImage(ctx context.Context, r io.Reader) (string, error)
}

type productServiceImpl struct {
	productRepo repository.ProductRepository
	images      storage.ImageStore
	maxUpload   int64
	validator   *validate.Validator
}

func NewProductService(
	productRepo repository.ProductRepository,
	images storage.ImageStore,
	maxUpload int64,
	validator *validate.Validator,
) ProductService {
	return &productServiceImpl{
		productRepo: productRepo,
		images:      images,
		maxUpload:   maxUpload,
		validator:   validator,
	}
}

func (s *productServiceImpl) List(ctx context.Context, params query.Params) (*query.Page[model.Product], error) {
	page, err := s.productRepo.List(ctx, params)
	if err != nil {
		return nil, storageErr("Failed to load products", err)
	}
	return page, nil
}

func (s *productServiceImpl) Get(ctx context.Context, productID int64) (*model.Product, error) {
	if productID <= 0 {
		return nil, apperr.Validation("Valid id parameter is required")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, storageErr("Failed to load product", err)
	}
	return product, nil
}

func (s *productServiceImpl) Categories(ctx context.Context) ([]*model.CategorySummary, error) {
	rows, err := s.productRepo.Categories(ctx)
	if err != nil {
		return nil, storageErr("Failed to fetch categories", err)
	}
	for _, r := range rows {
		r.Slug = slug.Make(r.Category)
	}
	return rows, nil
}

func (s *productServiceImpl) Create(ctx context.Context, req *dto.ProductRequest) (*model.Product, error) {
	product := &model.Product{}
	if err := s.apply(product, req); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, storageErr("Failed to create product", err)
	}
	return product, nil
}

func (s *productServiceImpl) Update(ctx context.Context, productID int64, req *dto.ProductRequest) (*model.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.apply(product, req); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, storageErr("Failed to update product", err)
	}
	return product, nil
}

// Delete removes the row permanently.
func (s *productServiceImpl) Delete(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return apperr.Validation("id is required and must be a positive integer")
	}

	found, err := s.productRepo.Delete(ctx, productID)
	if err != nil {
		return storageErr("Failed to delete product", err)
	}
	if !found {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *productServiceImpl) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	url, err := s.images.Save(r)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, storage.ErrEmpty):
		return "", apperr.Validation("No image uploaded")
	case errors.Is(err, storage.ErrTooLarge):
		return "", apperr.Validation(fmt.Sprintf("Image is too large (max %d MB)", s.maxUpload/(1<<20)))
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", apperr.Validation("Only JPEG, PNG and WebP images are allowed")
	default:
		return "", storageErr("Failed to save image", err)
	}
}

func (s *productServiceImpl) apply(product *model.Product, req *dto.ProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)
	req.Category = strings.TrimSpace(req.Category)
	msgs := s.validator.Messages(req)

	if !req.Price.IsPositive() {
		msgs = append(msgs, "price must be greater than 0")
	} else if !money.IsCents(req.Price) {
		msgs = append(msgs, "price must have at most 2 decimal places")
	}
	if req.Stock < 0 {
		msgs = append(msgs, "stock cannot be negative")
	}
	if err := validationErr(msgs); err != nil {
		return err
	}

	var imageURL *string
	if req.ImageURL != nil {
		if trimmed := strings.TrimSpace(*req.ImageURL); trimmed != "" {
			imageURL = &trimmed
		}
	}

	product.Name = req.Name
	product.Brand = req.Brand
	product.Category = req.Category
	product.Description = strings.TrimSpace(req.Description)
	product.Price = req.Price
	product.Stock = req.Stock
	product.ImageURL = imageURL
	return nil
}
