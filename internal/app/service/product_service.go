package service

import (
	"context"
	"errors"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

const (
	defaultProductPageSize = 50
	maxProductPageSize     = 100
)

type ProductService interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultProductPageSize
	}
	if filter.Limit > maxProductPageSize {
		filter.Limit = maxProductPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.productRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list products", err, map[string]interface{}{
			"category": filter.Category,
			"search":   filter.Search,
		})
		return nil, err
	}
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.FromContext(ctx).Error("Failed to get product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}
