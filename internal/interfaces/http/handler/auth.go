package handler

import (
	"github.com/gin-gonic/gin"

	appidentity "github.com/tallypro/storefront/internal/application/identity"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// AuthHandler handles sign-in, sign-up and session endpoints
type AuthHandler struct {
	BaseHandler
	sessions *appidentity.SessionService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *appidentity.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login handles POST /api/v1/auth/login on the customer path
// @ID           login
// @Summary      Sign in a customer
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Request body"
// @Success      200 {object} dto.Response{data=SessionResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, identity.LoginPathCustomer)
}

// AdminLogin handles POST /api/v1/auth/admin/login
// @ID           adminLogin
// @Summary      Sign in an administrator
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Request body"
// @Success      200 {object} dto.Response{data=SessionResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, identity.LoginPathAdmin)
}

func (h *AuthHandler) login(c *gin.Context, path identity.LoginPath) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.sessions.Login(c.Request.Context(), appidentity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Path:     path,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header(middleware.SessionIDHeader, result.SessionID)
	h.Success(c, toSessionResponse(result))
}

// Signup handles POST /api/v1/auth/signup
// @ID           signup
// @Summary      Register a customer account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Request body"
// @Success      201 {object} dto.Response{data=SessionResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.sessions.Signup(c.Request.Context(), appidentity.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header(middleware.SessionIDHeader, result.SessionID)
	h.Created(c, toSessionResponse(result))
}

// Logout handles POST /api/v1/auth/logout
// @ID           logout
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), middleware.GetSessionID(c), middleware.GetToken(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Signed out"})
}

// Me handles GET /api/v1/auth/me. The user is re-read from the store so
// entitlements granted since sign-in are visible.
// @ID           getCurrentUser
// @Summary      Get the signed-in user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.User}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.sessions.Refresh(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// RequestOTP handles POST /api/v1/auth/otp/request
// @ID           requestOTP
// @Summary      Send a login code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body OTPRequest true "Request body"
// @Success      200 {object} dto.Response{data=OTPResponse}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/auth/otp/request [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.sessions.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OTPResponse{Email: result.Email, ExpiresAt: result.ExpiresAt, Code: result.Code})
}

// VerifyOTP handles POST /api/v1/auth/otp/verify
// @ID           verifyOTP
// @Summary      Sign in with a login code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body OTPVerifyRequest true "Request body"
// @Success      200 {object} dto.Response{data=SessionResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.sessions.LoginWithOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header(middleware.SessionIDHeader, result.SessionID)
	h.Success(c, toSessionResponse(result))
}
