package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/shopAuth"
	"github.com/MrEthical07/shopAuth/commerce"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgUserNotFound       = "User not found. Please register."
	msgInvalidCredentials = "Invalid credentials."
	msgUserExists         = "User already exists. Please login."
	msgUnknownError       = "An unknown error occurred."
	msgInvalidBody        = "Invalid request body."
	msgDeliveryFailed     = "Failed to deliver OTP."
	msgTooManyRequests    = "Too many OTP requests. Try again later."
)

type otpRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type otpValidationRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	OTP       string `json:"otp" binding:"required"`
}

type loginEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

type loginPasswordRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyTokenRequest struct {
	AuthToken string `json:"auth_token" binding:"required"`
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    http.StatusBadRequest,
		"message": msgInvalidBody,
	})
}

func reply(c *gin.Context, success bool, code int, extra gin.H) {
	body := gin.H{"success": success, "code": code}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// GenerateOTP handles POST /a/auth/generateOTP.
func (h *Handler) GenerateOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	sessionID, err := h.engine.SendOTP(c.Request.Context(), req.PhoneNumber)
	switch {
	case err == nil:
		reply(c, true, http.StatusOK, gin.H{"session_id": sessionID})
	case errors.Is(err, shopAuth.ErrDeliveryFailed):
		reply(c, false, shopAuth.StatusOf(err), gin.H{"session_id": sessionID, "message": msgDeliveryFailed})
	case errors.Is(err, shopAuth.ErrOTPSendRateLimited):
		reply(c, false, shopAuth.StatusOf(err), gin.H{"message": msgTooManyRequests})
	default:
		h.logFailure(c, "generate otp", err)
		reply(c, false, shopAuth.StatusOf(err), gin.H{"message": msgUnknownError})
	}
}

// VerifyOTP handles POST /a/auth/verifyOTP. A phone grant is returned when
// grants are enabled and the code is accepted.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req otpValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, grant, err := h.engine.VerifyOTPWithGrant(c.Request.Context(), req.SessionID, req.OTP)
	if res.Code == http.StatusInternalServerError {
		h.logFailure(c, "verify otp", err)
	}
	var extra gin.H
	if grant != "" {
		extra = gin.H{"phone_grant": grant}
	}
	reply(c, res.Success, res.Code, extra)
}

// LoginEmail handles POST /a/auth/login/email.
func (h *Handler) LoginEmail(c *gin.Context) {
	var req loginEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, err := h.engine.LoginEmailStep(c.Request.Context(), req.Email)
	if err != nil {
		h.logFailure(c, "login email step", err)
		reply(c, false, res.Code, gin.H{"message": msgUnknownError})
		return
	}
	reply(c, res.Success, res.Code, gin.H{"redirect_url": "/login/password"})
}

// LoginPassword handles POST /a/auth/login/password.
func (h *Handler) LoginPassword(c *gin.Context) {
	var req loginPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	token, res, err := h.engine.LoginPassword(c.Request.Context(), req.Email, req.Password)
	switch res.Code {
	case http.StatusOK:
		reply(c, true, http.StatusOK, gin.H{"auth_token": token})
	case http.StatusNotFound:
		reply(c, false, res.Code, gin.H{"message": msgUserNotFound})
	case http.StatusUnauthorized:
		reply(c, false, res.Code, gin.H{"message": msgInvalidCredentials})
	default:
		h.logFailure(c, "login password", err)
		reply(c, false, res.Code, gin.H{"message": msgUnknownError})
	}
}

// Register handles POST /a/auth/login/register. The profile is created
// after the credential; a profile failure does not undo the registration.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	ctx := c.Request.Context()
	token, res, err := h.engine.RegisterAccount(ctx, req.Email, req.Password)
	switch res.Code {
	case http.StatusOK:
	case http.StatusConflict:
		reply(c, false, res.Code, gin.H{"message": msgUserExists})
		return
	default:
		h.logFailure(c, "register", err)
		reply(c, false, res.Code, gin.H{"message": msgUnknownError})
		return
	}

	if err := h.profiles.Create(ctx, req.Email, req.FullName); err != nil && !errors.Is(err, commerce.ErrProfileExists) {
		h.logFailure(c, "create profile", err)
	}
	reply(c, true, http.StatusOK, gin.H{"auth_token": token})
}

// VerifyToken handles POST /a/auth/verifyToken.
func (h *Handler) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, err := h.engine.VerifyAuthToken(c.Request.Context(), req.AuthToken)
	if res.Code == http.StatusInternalServerError {
		h.logFailure(c, "verify token", err)
	}
	reply(c, res.Success, res.Code, nil)
}

func (h *Handler) logFailure(c *gin.Context, op string, err error) {
	h.logger.Error(op+" failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
}
