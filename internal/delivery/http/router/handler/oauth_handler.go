package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"herald/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// OAuthHandler holds dependencies for the merchant authorization handlers.
type OAuthHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler, injected by Fx.
func NewOAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		uc:     uc,
		logger: logger,
	}
}

// Authorize starts the provider authorization flow by redirecting the merchant
// to the provider's consent page.
func (h *OAuthHandler) Authorize(c echo.Context) error {
	input := &usecase.AuthorizeInput{
		RedirectTo: c.QueryParam("redirect_to"),
	}

	output, err := h.uc.Authorize(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Redirect(http.StatusFound, output.AuthorizationURL)
}

// Callback completes the authorization-code exchange and hands the merchant
// back to the frontend with a session token.
func (h *OAuthHandler) Callback(c echo.Context) error {
	input := &usecase.CallbackInput{
		Code:  c.QueryParam("code"),
		State: c.QueryParam("state"),
	}

	output, err := h.uc.HandleCallback(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	// Without a frontend target the outcome is returned directly.
	if output.RedirectTo == "" {
		return c.JSON(http.StatusOK, map[string]any{
			"merchant_id":       output.MerchantID,
			"token":             output.SessionToken,
			"profile_published": output.ProfilePublished,
		})
	}

	target, err := url.Parse(output.RedirectTo)
	if err != nil {
		return errors.Wrap(err, "invalid frontend redirect target")
	}
	query := target.Query()
	query.Set("merchant_id", output.MerchantID)
	query.Set("token", output.SessionToken)
	query.Set("profile_published", strconv.FormatBool(output.ProfilePublished))
	target.RawQuery = query.Encode()

	return c.Redirect(http.StatusFound, target.String())
}
