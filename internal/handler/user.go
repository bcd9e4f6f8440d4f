package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/repository"
)

// UserHandler serves account creation and per-user ticket listing.
// Accounts have no registration flow: the rider app generates a stable
// uid on first launch and the first request materializes the record.
type UserHandler struct {
	Users   repository.UserStore
	Tickets repository.TicketStore
}

// NewUserHandler constructs a UserHandler with the provided stores.
// All dependencies must be non-nil.
func NewUserHandler(users repository.UserStore, tickets repository.TicketStore) *UserHandler {
	if users == nil || tickets == nil {
		panic("nil store passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Tickets: tickets}
}

type createUserReq struct {
	UID string `json:"uid"`
}

// CreateUser handles POST /users. It creates the account on first
// contact and returns the stored record either way, so the rider app
// can call it unconditionally at startup.
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "uid required"})
	}
	u, err := h.Users.CreateIfAbsent(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusOK, u)
}

// ListTickets handles GET /users/:uid/tickets. Tickets are returned
// most recent first; a user with no tickets gets an empty array.
func (h *UserHandler) ListTickets(c echo.Context) error {
	uid := strings.TrimSpace(c.Param("uid"))
	if uid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "uid required"})
	}
	tickets, err := h.Tickets.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "err": "failed to load tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "tickets": tickets})
}
