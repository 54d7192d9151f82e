package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/shopAuth/commerce"
	"github.com/MrEthical07/shopAuth/middleware"
	"github.com/gin-gonic/gin"
)

const (
	msgProfileNotFound = "Profile not found."
	msgAddedToCart     = "Product added to cart."
	msgAddFailed       = "Failed to add to cart."
	msgRemovedFromCart = "Product removed from cart."
	msgRemoveFailed    = "Failed to remove from cart."
	msgCartCleared     = "Cart cleared."
)

type cartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

type profileUpdateRequest struct {
	FullName *string `json:"full_name"`
}

// GetProfile handles GET /a/profile/my.
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), middleware.Email(c))
	if errors.Is(err, commerce.ErrProfileNotFound) {
		reply(c, false, http.StatusNotFound, gin.H{"message": msgProfileNotFound})
		return
	}
	if err != nil {
		h.logFailure(c, "get profile", err)
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgUnknownError})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"profile": p})
}

// UpdateProfile handles PATCH /a/profile/my.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	changed, err := h.profiles.Update(c.Request.Context(), middleware.Email(c), commerce.ProfileUpdate{FullName: req.FullName})
	if errors.Is(err, commerce.ErrProfileNotFound) {
		reply(c, false, http.StatusNotFound, gin.H{"message": msgProfileNotFound})
		return
	}
	if err != nil {
		h.logFailure(c, "update profile", err)
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgUnknownError})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"modified": changed})
}

// AttachPhone handles POST /a/profile/phone. The number comes from the
// phone grant header, never from the body.
func (h *Handler) AttachPhone(c *gin.Context) {
	changed, err := h.profiles.AttachPhone(c.Request.Context(), middleware.Email(c), middleware.Phone(c))
	if errors.Is(err, commerce.ErrProfileNotFound) {
		reply(c, false, http.StatusNotFound, gin.H{"message": msgProfileNotFound})
		return
	}
	if err != nil {
		h.logFailure(c, "attach phone", err)
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgUnknownError})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"modified": changed})
}

// AddToCart handles POST /a/cart/add.
func (h *Handler) AddToCart(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	if err := h.carts.Add(c.Request.Context(), middleware.Email(c), req.ProductID); err != nil {
		h.logFailure(c, "add to cart", err)
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgAddFailed})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"message": msgAddedToCart})
}

// RemoveFromCart handles POST /a/cart/remove.
func (h *Handler) RemoveFromCart(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	removed, err := h.carts.Remove(c.Request.Context(), middleware.Email(c), req.ProductID)
	if err != nil {
		h.logFailure(c, "remove from cart", err)
	}
	if err != nil || !removed {
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgRemoveFailed})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"message": msgRemovedFromCart})
}

// GetCart handles GET /a/cart/.
func (h *Handler) GetCart(c *gin.Context) {
	items, err := h.carts.Items(c.Request.Context(), middleware.Email(c))
	if err != nil {
		h.logFailure(c, "get cart", err)
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgUnknownError})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"items": items})
}

// ClearCart handles DELETE /a/cart/.
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.Email(c)); err != nil {
		h.logFailure(c, "clear cart", err)
		reply(c, false, http.StatusInternalServerError, gin.H{"message": msgUnknownError})
		return
	}
	reply(c, true, http.StatusOK, gin.H{"message": msgCartCleared})
}
