package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// ProfileHandler serves profile edits and the channel/history read models.
type ProfileHandler struct {
	profiles ports.ProfileService
	uploads  uploadLimits
}

func NewProfileHandler(profiles ports.ProfileService, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, uploads: uploadLimits{maxBytes: maxUploadBytes}}
}

// UpdateAccount changes the caller's full name and email.
//
// @Summary      Update account details
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateAccountRequest  true  "New details"
// @Success      200   {object}  apiResponse{data=domain.User}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/update-account [patch]
func (h *ProfileHandler) UpdateAccount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return domain.Validation("invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.profiles.UpdateAccountDetails(c.Request().Context(), userID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: "account details updated successfully", Data: user})
}

// UpdateAvatar replaces the caller's avatar image.
//
// @Summary      Update avatar
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar  formData  file  true  "Avatar image"
// @Success      200  {object}  apiResponse{data=domain.User}
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/avatar [patch]
func (h *ProfileHandler) UpdateAvatar(c echo.Context) error {
	return h.replaceImage(c, "avatar", "avatar image updated successfully", h.profiles.UpdateAvatar)
}

// UpdateCoverImage replaces the caller's cover image.
//
// @Summary      Update cover image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        coverImage  formData  file  true  "Cover image"
// @Success      200  {object}  apiResponse{data=domain.User}
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/cover-image [patch]
func (h *ProfileHandler) UpdateCoverImage(c echo.Context) error {
	return h.replaceImage(c, "coverImage", "cover image updated successfully", h.profiles.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, userID string, asset *ports.Asset) (*domain.User, error)

func (h *ProfileHandler) replaceImage(c echo.Context, field, message string, update imageUpdater) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	asset, closeAsset, err := h.uploads.formAsset(c, field)
	if err != nil {
		return err
	}
	defer closeAsset()

	user, err := update(c.Request().Context(), userID, asset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: message, Data: user})
}

// ChannelProfile returns a user's public channel with subscription counts.
// isSubscribed is relative to the caller when a valid access token is sent.
//
// @Summary      Channel profile
// @Tags         users
// @Produce      json
// @Param        username  path      string  true  "Channel user name"
// @Success      200       {object}  apiResponse{data=domain.ChannelProfile}
// @Failure      400       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /users/c/{username} [get]
func (h *ProfileHandler) ChannelProfile(c echo.Context) error {
	profile, err := h.profiles.GetChannelProfile(c.Request().Context(), c.Param("username"), viewerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: "user channel fetched successfully", Data: profile})
}

// WatchHistory returns the caller's watched videos in stored order.
//
// @Summary      Watch history
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=[]domain.VideoSummary}
// @Failure      401  {object}  errorResponse
// @Router       /users/history [get]
func (h *ProfileHandler) WatchHistory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	history, err := h.profiles.GetWatchHistory(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Success: true, Message: "watch history fetched successfully", Data: history})
}
