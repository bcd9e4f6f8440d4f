package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/repository"
)

// WalletHandler serves balance adjustments. Top-ups and corrections
// share one endpoint with a signed amount; the store applies the
// delta as a single atomic increment so concurrent adjustments for
// the same uid never lose updates.
type WalletHandler struct {
	Users repository.UserStore
}

// NewWalletHandler constructs a WalletHandler with the provided store.
func NewWalletHandler(users repository.UserStore) *WalletHandler {
	if users == nil {
		panic("nil store passed to NewWalletHandler")
	}
	return &WalletHandler{Users: users}
}

type adjustReq struct {
	UID    string `json:"uid"`
	Amount int64  `json:"amount"`
}

// Adjust handles POST /wallet/adjust. Amount may be negative for a
// debit; a debit that would overdraw is refused atomically by the
// store and reported as insufficient funds.
func (h *WalletHandler) Adjust(c echo.Context) error {
	var req adjustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "uid required"})
	}
	u, err := h.Users.AdjustWallet(c.Request().Context(), uid, req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient funds"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet update failed"})
	}
	return c.JSON(http.StatusOK, u)
}
