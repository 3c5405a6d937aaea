package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/platform/apierr"
)

type Handler struct {
	svc    *Service
	secure bool
}

// RegisterPublicRoutes mounts login, registration and password reset.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service, limiter *IPLimiter, secureCookie bool) {
	h := &Handler{svc: svc, secure: secureCookie}
	lim := limiter.Middleware()
	r.POST("/auth/register", lim, h.Register)
	r.POST("/auth/login", lim, h.Login)
	r.POST("/auth/logout", h.Logout)
	r.POST("/auth/password-reset/request", lim, h.RequestReset)
	r.POST("/auth/password-reset/confirm", lim, h.ResetPassword)
}

// RegisterRoutes mounts routes for any logged-in user.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/auth/me", h.Me)
	r.POST("/auth/password", h.ChangePassword)
}

func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/users", h.ListUsers)
	r.POST("/users/:id/approve", h.Approve)
	r.POST("/users/:id/reject", h.Reject)
	r.POST("/users/:id/toggle", h.Toggle)
	r.DELETE("/users/:id", h.Delete)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	token, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(h.svc.cfg.TokenTTL.Seconds()), "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", h.secure, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) RequestReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	if err := h.svc.RequestReset(c.Request.Context(), req.Email); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the email is registered, a reset token has been sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	res, err := h.svc.Me(c.Request.Context(), UserID(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), UserID(c), req); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListUsers(c *gin.Context) {
	items, err := h.svc.ListUsers(c.Request.Context(), c.Query("status") == "pending")
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.Respond(c, apierr.ErrInvalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.Reject(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Toggle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.ToggleActive(c.Request.Context(), id, UserID(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, UserID(c)); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
