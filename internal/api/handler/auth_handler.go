package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// AuthHandler serves registration and the session lifecycle.
type AuthHandler struct {
	sessions ports.SessionService
	cookies  CookieConfig
	uploads  uploadLimits
}

func NewAuthHandler(sessions ports.SessionService, cookies CookieConfig, maxUploadBytes int64) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		cookies:  cookies,
		uploads:  uploadLimits{maxBytes: maxUploadBytes},
	}
}

func record(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	metrics.SessionOpsTotal.WithLabelValues(op, result).Inc()
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        fullName    formData  string  true   "Full name"
// @Param        email       formData  string  true   "Email"
// @Param        userName    formData  string  true   "User name"
// @Param        password    formData  string  true   "Password"
// @Param        avatar      formData  file    true   "Avatar image"
// @Param        coverImage  formData  file    false  "Cover image"
// @Success      201  {object}  apiResponse{data=domain.User}
// @Failure      400  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/register [post]
func (h *AuthHandler) Register(c echo.Context) (err error) {
	defer func() { record("register", err) }()

	avatar, closeAvatar, err := h.uploads.formAsset(c, "avatar")
	if err != nil {
		return err
	}
	defer closeAvatar()

	cover, closeCover, err := h.uploads.formAsset(c, "coverImage")
	if err != nil {
		return err
	}
	defer closeCover()

	user, err := h.sessions.Register(c.Request().Context(), ports.RegisterInput{
		FullName: c.FormValue("fullName"),
		Email:    c.FormValue("email"),
		UserName: c.FormValue("userName"),
		Password: c.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, apiResponse{Success: true, Message: "user registered successfully", Data: user})
}

// Login authenticates a user by userName or email and starts a session.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  apiResponse{data=loginData}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /users/login [post]
func (h *AuthHandler) Login(c echo.Context) (err error) {
	defer func() { record("login", err) }()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.Validation("invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.sessions.Login(c.Request().Context(), ports.LoginInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.cookies.set(c, result.Tokens)
	return c.JSON(http.StatusOK, apiResponse{
		Success: true,
		Message: "user logged in successfully",
		Data: loginData{
			User:         result.User,
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		},
	})
}

// Logout revokes the caller's refresh token and clears the session cookies.
//
// @Summary      Logout
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse
// @Failure      401  {object}  errorResponse
// @Router       /users/logout [post]
func (h *AuthHandler) Logout(c echo.Context) (err error) {
	defer func() { record("logout", err) }()

	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	h.cookies.clear(c)
	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: "user logged out"})
}

// RefreshToken rotates the refresh token and issues a new pair. The token is
// read from the refreshToken cookie, or from the JSON body when the cookie is absent.
//
// @Summary      Refresh the access token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (when not sent as a cookie)"
// @Success      200   {object}  apiResponse{data=tokensData}
// @Failure      401   {object}  errorResponse
// @Router       /users/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) (err error) {
	defer func() { record("refresh", err) }()

	token := ""
	if ck, err := c.Cookie(refreshCookie); err == nil {
		token = ck.Value
	}
	if token == "" {
		var req refreshRequest
		if err := c.Bind(&req); err != nil {
			return domain.Validation("invalid payload")
		}
		token = req.RefreshToken
	}

	pair, err := h.sessions.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}

	h.cookies.set(c, pair)
	return c.JSON(http.StatusOK, apiResponse{
		Success: true,
		Message: "access token refreshed",
		Data:    tokensData{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

// ChangePassword replaces the caller's password. Outstanding tokens stay valid.
//
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Old and new password"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /users/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) (err error) {
	defer func() { record("change_password", err) }()

	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return domain.Validation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.sessions.ChangePassword(c.Request().Context(), userID, ports.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: "password changed successfully"})
}

// CurrentUser returns the caller's sanitized profile.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=domain.User}
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/current-user [get]
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.sessions.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: "current user fetched successfully", Data: user})
}
