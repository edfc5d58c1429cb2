package handler

import (
	"log/slog"
	"net/http"

	deliverycontext "herald/internal/delivery/context"
	"herald/internal/delivery/http/response"
	"herald/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ProfileHandler holds dependencies for merchant profile handlers.
type ProfileHandler struct {
	uc     usecase.ProfileUsecase
	logger *slog.Logger
}

// NewProfileHandler is the constructor for ProfileHandler, injected by Fx.
func NewProfileHandler(uc usecase.ProfileUsecase, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		uc:     uc,
		logger: logger,
	}
}

// SellerInfo returns the raw provider-side merchant record.
func (h *ProfileHandler) SellerInfo(c echo.Context) error {
	merchantID := deliverycontext.GetMerchantID(c)

	output, err := h.uc.SellerInfo(c.Request().Context(), merchantID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output.Metadata, "Seller info retrieved")
}

// PrepareProfile assembles the publishable profile from provider data without
// publishing it.
func (h *ProfileHandler) PrepareProfile(c echo.Context) error {
	merchantID := deliverycontext.GetMerchantID(c)

	profile, err := h.uc.FetchAndPrepareProfile(c.Request().Context(), merchantID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile, "Profile prepared")
}

// PublishedProfile reads the currently published profile back from the
// identity network.
func (h *ProfileHandler) PublishedProfile(c echo.Context) error {
	merchantID := deliverycontext.GetMerchantID(c)

	profile, err := h.uc.GetProfile(c.Request().Context(), merchantID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile, "Published profile retrieved")
}

// PublishProfile publishes caller-supplied profile data under the merchant's identity.
func (h *ProfileHandler) PublishProfile(c echo.Context) error {
	merchantID := deliverycontext.GetMerchantID(c)

	var input *usecase.PublishProfileInput
	if err := c.Bind(&input); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid profile input")
	}
	if err := c.Validate(input); err != nil {
		return errors.WithStack(err)
	}

	profile, err := h.uc.PublishProfile(c.Request().Context(), merchantID, input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile, "Profile published")
}
