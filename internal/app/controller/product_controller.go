package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/internal/app/service"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// ListProducts returns the catalog
// GET /api/v1/products?category=&search=&in_stock=&sort=&order=&page=&page_size=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Search:        c.Query("search"),
		InStockOnly:   c.Query("in_stock") == "true",
		SortBy:        repository.ProductSort(c.Query("sort")),
		SortAscending: c.DefaultQuery("order", "asc") != "desc",
	}

	if category := c.Query("category"); category != "" {
		cat := model.ProductCategory(category)
		filter.Category = &cat
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	products, err := ctrl.productService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"page":     page,
	})
}

// GetProduct returns one product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}
