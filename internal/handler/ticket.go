package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/model"
	"github.com/railgate/ticketing/internal/queue"
	"github.com/railgate/ticketing/internal/repository"
	queue_publisher "github.com/railgate/ticketing/internal/service"
	"github.com/railgate/ticketing/internal/token"
)

// TicketHandler implements ticket issuance: confirm funds, stamp the
// validity window, encode the token payload and persist the record.
// The wallet debit and the ticket insert are treated as one logical
// unit; when the insert fails after a debit, the handler compensates
// by crediting the amount back before reporting failure, so a rider
// is never charged for a ticket that does not exist.
type TicketHandler struct {
	Users    repository.UserStore
	Tickets  repository.TicketStore
	Codec    *token.Codec
	Validity time.Duration
	// PublishIssued emits the audit event after a successful issuance.
	// Swappable for tests; failures are logged and ignored.
	PublishIssued func(c echo.Context, ev queue.TicketIssuedEvent)
}

// NewTicketHandler constructs a TicketHandler. All dependencies must
// be non-nil and the validity window positive.
func NewTicketHandler(users repository.UserStore, tickets repository.TicketStore, codec *token.Codec, validity time.Duration) *TicketHandler {
	if users == nil || tickets == nil || codec == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	if validity <= 0 {
		panic("non-positive validity window passed to NewTicketHandler")
	}
	return &TicketHandler{
		Users:    users,
		Tickets:  tickets,
		Codec:    codec,
		Validity: validity,
		PublishIssued: func(c echo.Context, ev queue.TicketIssuedEvent) {
			_ = queue_publisher.PublishTicketIssued(c.Request().Context(), ev)
		},
	}
}

type ticketMeta struct {
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	ClassType     string `json:"classType"`
	Count         int    `json:"count"`
	Amount        int64  `json:"amount"`
	BookingMethod string `json:"bookingMethod"`
}

type issueReq struct {
	UID  string     `json:"uid"`
	Meta ticketMeta `json:"meta"`
}

// Issue handles POST /tickets.
func (h *TicketHandler) Issue(c echo.Context) error {
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "invalid body"})
	}
	uid := strings.TrimSpace(req.UID)
	src := strings.TrimSpace(req.Meta.Source)
	dst := strings.TrimSpace(req.Meta.Destination)
	if uid == "" || src == "" || dst == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "uid, source and destination required"})
	}
	if req.Meta.Amount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "amount must not be negative"})
	}
	count := req.Meta.Count
	if count < 1 {
		count = 1
	}
	method := strings.ToLower(strings.TrimSpace(req.Meta.BookingMethod))
	if method == "" {
		method = model.BookingMethodWallet
	}

	ctx := c.Request().Context()

	// First contact may arrive through issuance directly; resolve or
	// create the account before touching funds.
	if _, err := h.Users.CreateIfAbsent(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "err": "store unavailable"})
	}

	// Wallet-funded bookings debit first. The guard lives inside the
	// store's atomic update; gateway-funded bookings were settled by
	// the payment authority before this call.
	debited := false
	if method == model.BookingMethodWallet {
		if _, err := h.Users.AdjustWallet(ctx, uid, -req.Meta.Amount); err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "err": "insufficient funds"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "err": "store unavailable"})
		}
		debited = true
	}

	now := time.Now().UTC()
	tid := repository.NewTicketID(now)
	payload, err := h.Codec.Encode(token.Fields{
		TID:         tid,
		UID:         uid,
		Source:      src,
		Destination: dst,
	})
	if err != nil {
		h.compensate(c, uid, req.Meta.Amount, debited)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "err": "issuance failed"})
	}

	t := model.Ticket{
		TID:           tid,
		UID:           uid,
		Source:        src,
		Destination:   dst,
		ClassType:     req.Meta.ClassType,
		Count:         count,
		Amount:        req.Meta.Amount,
		BookingMethod: method,
		TokenPayload:  payload,
		CreatedAt:     now,
		ExpiresAt:     now.Add(h.Validity),
	}
	if err := h.Tickets.Insert(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateTicket) {
			// The generator guarantees practical uniqueness; reaching
			// this branch means an invariant broke upstream.
			log.Printf("ticket: duplicate tid on insert: %s", tid)
		}
		h.compensate(c, uid, req.Meta.Amount, debited)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "err": "issuance failed"})
	}

	if h.PublishIssued != nil {
		h.PublishIssued(c, queue.TicketIssuedEvent{
			TID:           t.TID,
			UID:           t.UID,
			Source:        t.Source,
			Destination:   t.Destination,
			ClassType:     t.ClassType,
			Count:         t.Count,
			Amount:        t.Amount,
			BookingMethod: t.BookingMethod,
			IssuedAt:      t.CreatedAt.Format(time.RFC3339),
			ExpiresAt:     t.ExpiresAt.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "tid": tid, "token": payload})
}

// compensate credits back a completed debit after a failed insert.
// A failed compensation is logged loudly: it is the one state that
// needs manual reconciliation.
func (h *TicketHandler) compensate(c echo.Context, uid string, amount int64, debited bool) {
	if !debited || amount == 0 {
		return
	}
	if _, err := h.Users.AdjustWallet(c.Request().Context(), uid, amount); err != nil {
		log.Printf("ticket: compensating credit failed for uid=%s amount=%d: %v", uid, amount, err)
	}
}
