package http

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

type handler struct {
	users        UserService
	logger       logging.Logger
	cookieSecure bool
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userData struct {
	User *models.Profile `json:"user"`
}

type sessionData struct {
	User        *models.Profile `json:"user"`
	AccessToken string          `json:"accessToken"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "user created", userData{User: profile})
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.users.Login(c.Request.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setTokenCookie(c, common.AccessTokenCookieName, res.Access)
	h.setTokenCookie(c, common.RefreshTokenCookieName, res.Refresh)

	respond(c, http.StatusOK, "logged in", sessionData{User: res.User, AccessToken: res.Access.Value})
}

func (h *handler) me(c *gin.Context) {
	respond(c, http.StatusOK, "user profile", userData{User: currentProfile(c)})
}

func (h *handler) refresh(c *gin.Context) {
	res, err := h.users.Refresh(c.Request.Context(), cookieValue(c, common.RefreshTokenCookieName))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setTokenCookie(c, common.AccessTokenCookieName, res.Access)

	respond(c, http.StatusOK, "token refreshed", sessionData{User: res.User, AccessToken: res.Access.Value})
}

func (h *handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), currentProfile(c).ID, services.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "password changed", nil)
}

func (h *handler) logout(c *gin.Context) {
	hasAccess := cookieValue(c, common.AccessTokenCookieName) != ""
	hasRefresh := cookieValue(c, common.RefreshTokenCookieName) != ""

	if !h.users.Logout(c.Request.Context(), hasAccess, hasRefresh) {
		c.Status(http.StatusNoContent)
		return
	}

	h.clearCookie(c, common.AccessTokenCookieName)
	h.clearCookie(c, common.RefreshTokenCookieName)

	respond(c, http.StatusOK, "logged out", nil)
}
