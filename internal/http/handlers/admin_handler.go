// Admin HTTP handlers.
//
// This file exposes the dashboard under /admin. Login and logout are open;
// everything else requires the signed session cookie:
//   - products: list, create, update, delete, stock adjust, reset to seed
//   - sales:    paged ledger (newest first), stats, clear
//   - testimonials: moderation queue, approve, delete
//   - security: visit overview, clear the suspicious flag
//   - wipe:     drop all storefront state and the session
//
// Admin operations bypass the shopper-facing guards.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/services"
)

// LoginRequest carries the shared admin password.
type LoginRequest struct {
	Password string `json:"password"`
}

// AdjustStockRequest moves stock by Delta; the result floors at zero.
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required" example:"-1"`
}

// SalesPage is one page of the ledger, newest first.
type SalesPage struct {
	Sales      []domain.SaleRecord `json:"sales"`
	Pagination Pagination          `json:"pagination"`
}

// AdminLogin godoc
// @ID          adminLogin
// @Summary     Open an admin session
// @Tags        Admin
// @Accept      json
// @Param       body  body  handlers.LoginRequest  true  "Password"
// @Success     204
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /admin/login [post]
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.d.Admin.Login(c.Request.Context(), req.Password); err != nil {
		if errors.Is(err, services.ErrValidation) {
			fail(c, http.StatusBadRequest, ErrCodeValidation, MsgEmptyPassword)
			return
		}
		writeServiceError(c, err)
		return
	}
	if err := h.d.Session.Issue(c); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// AdminLogout godoc
// @ID          adminLogout
// @Summary     Close the admin session
// @Tags        Admin
// @Success     204
// @Router      /admin/logout [post]
func (h *Handlers) AdminLogout(c *gin.Context) {
	h.d.Session.Clear(c)
	noContent(c)
}

// AdminProducts godoc
// @ID          adminListProducts
// @Summary     Full catalog
// @Tags        Admin
// @Produce     json
// @Success     200  {array}  domain.Product
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /admin/products [get]
func (h *Handlers) AdminProducts(c *gin.Context) {
	list, err := h.d.Admin.Products(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// AdminCreateProduct godoc
// @ID          adminCreateProduct
// @Summary     Add a product
// @Description The id is assigned from the current millisecond timestamp.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       body  body  domain.Product  true  "Product"
// @Success     201  {object}  domain.Product
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /admin/products [post]
func (h *Handlers) AdminCreateProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	created, err := h.d.Admin.CreateProduct(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// AdminUpdateProduct godoc
// @ID          adminUpdateProduct
// @Summary     Replace a product
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       id    path  string          true  "Product id"
// @Param       body  body  domain.Product  true  "Product"
// @Success     200  {object}  domain.Product
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/products/{id} [put]
func (h *Handlers) AdminUpdateProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p.ID = c.Param("id")
	updated, err := h.d.Admin.UpdateProduct(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, updated)
}

// AdminDeleteProduct godoc
// @ID          adminDeleteProduct
// @Summary     Delete a product
// @Tags        Admin
// @Param       id  path  string  true  "Product id"
// @Success     204
// @Router      /admin/products/{id} [delete]
func (h *Handlers) AdminDeleteProduct(c *gin.Context) {
	if err := h.d.Admin.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// AdminAdjustStock godoc
// @ID          adminAdjustStock
// @Summary     Move a product's stock up or down
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       id    path  string                       true  "Product id"
// @Param       body  body  handlers.AdjustStockRequest  true  "Delta"
// @Success     200  {object}  domain.Product
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/products/{id}/stock [post]
func (h *Handlers) AdminAdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "delta must be a non-zero integer")
		return
	}
	p, err := h.d.Admin.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// AdminResetProducts godoc
// @ID          adminResetProducts
// @Summary     Restore the default catalog
// @Tags        Admin
// @Produce     json
// @Success     200  {array}  domain.Product
// @Router      /admin/products/reset [post]
func (h *Handlers) AdminResetProducts(c *gin.Context) {
	list, err := h.d.Admin.ResetProducts(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	middleware.LoggerFrom(c).Warn().Int("products", len(list)).Msg("catalog reset to defaults")
	ok(c, http.StatusOK, list)
}

// AdminSales godoc
// @ID          adminSales
// @Summary     Sales ledger (paginated, newest first)
// @Tags        Admin
// @Produce     json
// @Param       page       query  int  false  "Page (1-based)"
// @Param       page_size  query  int  false  "Page size (max 100)"
// @Success     200  {object}  handlers.SalesPage
// @Router      /admin/sales [get]
func (h *Handlers) AdminSales(c *gin.Context) {
	sales, err := h.d.Admin.Sales(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	newest := make([]domain.SaleRecord, len(sales))
	for i, r := range sales {
		newest[len(sales)-1-i] = r
	}
	lo, hi, p := paginate(c, len(newest))
	ok(c, http.StatusOK, SalesPage{Sales: newest[lo:hi], Pagination: p})
}

// AdminStats godoc
// @ID          adminStats
// @Summary     Revenue, order lines and best seller
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.SalesStats
// @Router      /admin/sales/stats [get]
func (h *Handlers) AdminStats(c *gin.Context) {
	st, err := h.d.Admin.Stats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// AdminClearSales godoc
// @ID          adminClearSales
// @Summary     Empty the sales ledger
// @Tags        Admin
// @Success     204
// @Router      /admin/sales [delete]
func (h *Handlers) AdminClearSales(c *gin.Context) {
	if err := h.d.Admin.ClearSales(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// AdminTestimonials godoc
// @ID          adminTestimonials
// @Summary     Every testimonial, pending ones included
// @Tags        Admin
// @Produce     json
// @Param       status  query  string  false  "pending or verified"
// @Success     200  {array}  domain.Testimonial
// @Router      /admin/testimonials [get]
func (h *Handlers) AdminTestimonials(c *gin.Context) {
	list, err := h.d.Testimonials.ListAll(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	switch strings.ToLower(c.Query("status")) {
	case "pending":
		list = filterTestimonials(list, false)
	case "verified":
		list = filterTestimonials(list, true)
	}
	ok(c, http.StatusOK, list)
}

func filterTestimonials(in []domain.Testimonial, verified bool) []domain.Testimonial {
	out := make([]domain.Testimonial, 0, len(in))
	for _, t := range in {
		if t.Verified == verified {
			out = append(out, t)
		}
	}
	return out
}

// AdminApproveTestimonial godoc
// @ID          adminApproveTestimonial
// @Summary     Approve a testimonial
// @Tags        Admin
// @Param       id  path  string  true  "Testimonial id"
// @Success     204
// @Router      /admin/testimonials/{id}/approve [post]
func (h *Handlers) AdminApproveTestimonial(c *gin.Context) {
	if err := h.d.Testimonials.Approve(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// AdminDeleteTestimonial godoc
// @ID          adminDeleteTestimonial
// @Summary     Delete a testimonial
// @Tags        Admin
// @Param       id  path  string  true  "Testimonial id"
// @Success     204
// @Router      /admin/testimonials/{id} [delete]
func (h *Handlers) AdminDeleteTestimonial(c *gin.Context) {
	if err := h.d.Testimonials.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// AdminSecurity godoc
// @ID          adminSecurity
// @Summary     Visit counter and suspicious-activity flag
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  security.Overview
// @Router      /admin/security [get]
func (h *Handlers) AdminSecurity(c *gin.Context) {
	ov, err := h.d.Admin.Security(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ov)
}

// AdminClearSuspicious godoc
// @ID          adminClearSuspicious
// @Summary     Lower the suspicious-activity flag
// @Tags        Admin
// @Success     204
// @Router      /admin/security/suspicious [delete]
func (h *Handlers) AdminClearSuspicious(c *gin.Context) {
	if err := h.d.Admin.ClearSuspicious(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// AdminWipe godoc
// @ID          adminWipe
// @Summary     Delete every persisted key
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  map[string]int
// @Router      /admin/wipe [post]
func (h *Handlers) AdminWipe(c *gin.Context) {
	n, err := h.d.Admin.WipeAll(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.d.Session.Clear(c)
	ok(c, http.StatusOK, gin.H{"deleted": n})
}
