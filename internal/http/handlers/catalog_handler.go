// Catalog HTTP handler: GET /products, optionally filtered by category.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

// ListProducts godoc
// @ID          listProducts
// @Summary     List the catalog
// @Description Returns every product, optionally filtered by category.
// @Tags        Catalog
// @Produce     json
// @Param       category  query  string  false  "vps, panel or other"
// @Success     200  {array}   domain.Product
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	cat := domain.Category(strings.ToLower(strings.TrimSpace(c.Query("category"))))
	if cat != "" && !cat.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "unknown category")
		return
	}
	products, err := h.d.Catalog.Products(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if cat != "" {
		filtered := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if p.Category == cat {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	ok(c, http.StatusOK, products)
}
