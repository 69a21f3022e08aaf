package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/services/shop/internal/service"
)

// CatalogHandler — обработчики чтения каталога.
type CatalogHandler struct {
	catalog service.CatalogService
}

// NewCatalogHandler создаёт обработчик каталога.
func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListProducts обрабатывает GET /products?category=&page=&pageSize=.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	// некорректные значения пагинации заменяются значениями по умолчанию
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	result, err := h.catalog.ListProducts(c.Request.Context(), service.ListProductsInput{
		CategorySlug: c.Query("category"),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		HandleError(c, err, "ListProducts")
		return
	}

	resp := ProductListResponse{
		Products: make([]ProductResponse, 0, len(result.Products)),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}
	for _, p := range result.Products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}

	c.JSON(http.StatusOK, resp)
}

// GetProduct обрабатывает GET /products/:slug.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		HandleError(c, err, "GetProduct")
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// ListCategories обрабатывает GET /categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		HandleError(c, err, "ListCategories")
		return
	}

	resp := make([]TaxonomyResponse, 0, len(categories))
	for _, cat := range categories {
		resp = append(resp, TaxonomyResponse{ID: cat.ID, Slug: cat.Slug, Title: cat.Title})
	}
	c.JSON(http.StatusOK, gin.H{"categories": resp})
}

// ListTags обрабатывает GET /tags.
func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalog.ListTags(c.Request.Context())
	if err != nil {
		HandleError(c, err, "ListTags")
		return
	}

	resp := make([]TaxonomyResponse, 0, len(tags))
	for _, t := range tags {
		resp = append(resp, TaxonomyResponse{ID: t.ID, Slug: t.Slug, Title: t.Title})
	}
	c.JSON(http.StatusOK, gin.H{"tags": resp})
}
