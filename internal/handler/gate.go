package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/queue"
	"github.com/railgate/ticketing/internal/repository"
	queue_publisher "github.com/railgate/ticketing/internal/service"
)

// GateHandler serves the validation endpoint for station gates. Gate
// authentication happens in middleware before this handler runs, so by
// the time Validate executes the caller is a provisioned device. The
// whole decision reduces to one call: the store's atomic claim. There
// is deliberately no read-then-write here — two gates racing on a
// cloned token both reach ClaimForUse and the store picks the single
// winner.
type GateHandler struct {
	Tickets repository.TicketStore
	// PublishDecision emits the audit event for every decision.
	// Swappable for tests; failures are logged and ignored.
	PublishDecision func(c echo.Context, ev queue.GateDecisionEvent)
}

// NewGateHandler constructs a GateHandler with the provided store.
func NewGateHandler(tickets repository.TicketStore) *GateHandler {
	if tickets == nil {
		panic("nil store passed to NewGateHandler")
	}
	return &GateHandler{
		Tickets: tickets,
		PublishDecision: func(c echo.Context, ev queue.GateDecisionEvent) {
			_ = queue_publisher.PublishGateDecision(c.Request().Context(), ev)
		},
	}
}

type validateReq struct {
	TID    string `json:"tid"`
	GateID string `json:"gateId"`
}

// Validate handles POST /gate/validate. Business denials come back as
// 400 with a reason string so gate firmware can show "access denied";
// store failures come back as 503 so it can show "system down, try
// again" instead — a retried claim is safe because an already granted
// ticket reports "already used", never a second grant.
func (h *GateHandler) Validate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "invalid tid"})
	}
	tid := strings.TrimSpace(req.TID)
	if tid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "invalid tid"})
	}
	gateID := strings.TrimSpace(req.GateID)
	if gateID == "" {
		gateID = "unknown"
	}

	now := time.Now().UTC()
	res, err := h.Tickets.ClaimForUse(c.Request().Context(), tid, gateID, now)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"ok": false, "err": "store unavailable"})
	}

	if h.PublishDecision != nil {
		h.PublishDecision(c, queue.GateDecisionEvent{
			TID:       tid,
			GateID:    gateID,
			Granted:   res.Granted,
			Reason:    string(res.Reason),
			DecidedAt: now.Format(time.RFC3339),
		})
	}

	if !res.Granted {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": string(res.Reason)})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
