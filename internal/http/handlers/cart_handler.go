// Cart HTTP handlers.
//
// This file exposes REST endpoints for the profile's shopping cart:
//   - GET    /cart                (lines, item count and total)
//   - POST   /cart/items          (add one unit of a catalog product)
//   - PATCH  /cart/items/{index}  (set a line's quantity; 0 removes it)
//   - DELETE /cart/items/{index}  (remove a line)
//   - DELETE /cart                (empty the cart)
//
// The cart is scoped by the X-Profile-ID header. Adding goes through the
// per-profile rate gate and the stock check; quantity updates do not
// recheck stock.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/domain"
	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/observability"
	"github.com/tbourn/go-storefront-backend/internal/services"
)

// CartView is the cart as returned to clients. Totals are recomputed on
// every read.
type CartView struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice int64             `json:"total_price"`
}

func viewOf(cart *services.Cart) CartView {
	items := cart.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartView{Items: items, TotalItems: cart.TotalItems(), TotalPrice: cart.TotalPrice()}
}

// AddToCartRequest names the product to add.
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required" example:"vps1"`
}

// AddToCartResponse reports the add and the resulting cart.
type AddToCartResponse struct {
	services.AddResult
	Cart CartView `json:"cart"`
}

// UpdateQuantityRequest sets a line's quantity; zero or less removes it.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required" example:"2"`
}

// GetCart godoc
// @ID          getCart
// @Summary     Current cart
// @Tags        Cart
// @Produce     json
// @Param       X-Profile-ID  header  string  false  "Client profile"
// @Success     200  {object}  handlers.CartView
// @Router      /cart [get]
func (h *Handlers) GetCart(c *gin.Context) {
	cart := h.d.Carts.Open(c.Request.Context(), middleware.ProfileFrom(c))
	ok(c, http.StatusOK, viewOf(cart))
}

// AddToCart godoc
// @ID          addToCart
// @Summary     Add one unit of a product
// @Description Rate-gated per profile. Stock-bearing products are checked against current stock.
// @Tags        Cart
// @Accept      json
// @Produce     json
// @Param       X-Profile-ID  header  string  false  "Client profile"
// @Param       body  body  handlers.AddToCartRequest  true  "Product"
// @Success     200  {object}  handlers.AddToCartResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "out_of_stock or stock_limit"
// @Failure     429  {object}  handlers.ErrorResponse
// @Router      /cart/items [post]
func (h *Handlers) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.checkGate(c); err != nil {
		return
	}

	ctx := c.Request.Context()
	cart := h.d.Carts.Open(ctx, middleware.ProfileFrom(c))
	res, err := h.d.Carts.AddProduct(ctx, cart, req.ProductID)
	switch {
	case errors.Is(err, services.ErrOutOfStock):
		observability.CartAdd(observability.CartOutOfStock)
	case errors.Is(err, services.ErrStockLimitReached):
		observability.CartAdd(observability.CartStockLimited)
	case err == nil:
		observability.CartAdd(observability.CartAdded)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, AddToCartResponse{AddResult: res, Cart: viewOf(cart)})
}

// UpdateCartItem godoc
// @ID          updateCartItem
// @Summary     Set a line's quantity
// @Description Quantity is taken as given; zero or less removes the line.
// @Tags        Cart
// @Accept      json
// @Produce     json
// @Param       index  path  int  true  "Line index"
// @Param       body   body  handlers.UpdateQuantityRequest  true  "Quantity"
// @Success     200  {object}  handlers.CartView
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /cart/items/{index} [patch]
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	idx, good := lineIndex(c)
	if !good {
		return
	}
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()
	cart := h.d.Carts.Open(ctx, middleware.ProfileFrom(c))
	if err := cart.UpdateQuantity(ctx, idx, *req.Quantity); err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, viewOf(cart))
}

// RemoveCartItem godoc
// @ID          removeCartItem
// @Summary     Remove a line
// @Description Out-of-range indices are ignored.
// @Tags        Cart
// @Produce     json
// @Param       index  path  int  true  "Line index"
// @Success     200  {object}  handlers.CartView
// @Router      /cart/items/{index} [delete]
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	idx, good := lineIndex(c)
	if !good {
		return
	}
	ctx := c.Request.Context()
	cart := h.d.Carts.Open(ctx, middleware.ProfileFrom(c))
	if err := cart.Remove(ctx, idx); err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, viewOf(cart))
}

// ClearCart godoc
// @ID          clearCart
// @Summary     Empty the cart
// @Tags        Cart
// @Success     204
// @Router      /cart [delete]
func (h *Handlers) ClearCart(c *gin.Context) {
	ctx := c.Request.Context()
	cart := h.d.Carts.Open(ctx, middleware.ProfileFrom(c))
	if err := cart.Clear(ctx); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

func lineIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "index must be an integer")
		return 0, false
	}
	return idx, true
}
