package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/railgate/ticketing/internal/config"
	"github.com/railgate/ticketing/internal/handler"
	"github.com/railgate/ticketing/internal/model"
	"github.com/railgate/ticketing/internal/queue"
	"github.com/railgate/ticketing/internal/repository"
	"github.com/railgate/ticketing/internal/router"
	"github.com/railgate/ticketing/internal/token"
)

const gateKey = "test-gate-key"

// testEnv wires the real routes against the in-memory store so tests
// exercise the same handler/middleware chain the server runs.
type testEnv struct {
	e     *echo.Echo
	store *repository.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStores(t, repository.NewMemoryStore(500), nil)
}

func newTestEnvWithStores(t *testing.T, mem *repository.MemoryStore, tickets repository.TicketStore) *testEnv {
	t.Helper()
	if tickets == nil {
		tickets = mem
	}
	codec := token.NewCodec("test-token-secret")

	userHandler := handler.NewUserHandler(mem, tickets)
	walletHandler := handler.NewWalletHandler(mem)
	ticketHandler := handler.NewTicketHandler(mem, tickets, codec, time.Hour)
	ticketHandler.PublishIssued = func(echo.Context, queue.TicketIssuedEvent) {}
	gateHandler := handler.NewGateHandler(tickets)
	gateHandler.PublishDecision = func(echo.Context, queue.GateDecisionEvent) {}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterRider(e, userHandler, walletHandler, ticketHandler)
	router.RegisterGate(e, gateHandler, config.Config{GateAPIKey: gateKey}, config.RateLimitConfig{}, nil)

	return &testEnv{e: e, store: mem}
}

func (env *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return m
}

func (env *testEnv) issueTicket(t *testing.T, uid string, amount int64) string {
	t.Helper()
	rec := env.do(http.MethodPost, "/tickets",
		`{"uid":"`+uid+`","meta":{"source":"Central","destination":"Harbor","amount":`+jsonInt(amount)+`,"classType":"standard","count":1,"bookingMethod":"wallet"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("issue returned %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	tid, _ := body["tid"].(string)
	if tid == "" {
		t.Fatalf("issue response missing tid: %v", body)
	}
	return tid
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func validateBody(tid, gateID string) string {
	return `{"tid":"` + tid + `","gateId":"` + gateID + `"}`
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
}

func TestCreateUserFirstContact(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create user = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["uid"] != "u-1" || body["wallet"] != float64(500) {
		t.Errorf("unexpected user body: %v", body)
	}

	// Second contact returns the same account, not a fresh one.
	env.do(http.MethodPost, "/wallet/adjust", `{"uid":"u-1","amount":-100}`, nil)
	rec = env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)
	if body := decodeBody(t, rec); body["wallet"] != float64(400) {
		t.Errorf("second contact reset wallet: %v", body)
	}

	rec = env.do(http.MethodPost, "/users", `{"uid":""}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty uid = %d, want 400", rec.Code)
	}
}

func TestWalletAdjust(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"top up", `{"uid":"u-1","amount":250}`, http.StatusOK, ""},
		{"debit", `{"uid":"u-1","amount":-700}`, http.StatusOK, ""},
		{"overdraw", `{"uid":"u-1","amount":-51}`, http.StatusBadRequest, "insufficient funds"},
		{"unknown uid", `{"uid":"nobody","amount":10}`, http.StatusNotFound, "user not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/wallet/adjust", tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if body := decodeBody(t, rec); body["error"] != tt.wantErr {
					t.Errorf("error = %v, want %q", body["error"], tt.wantErr)
				}
			}
		})
	}

	// 500 + 250 - 700 = 50 and the refused overdraw left it alone.
	u, err := env.store.FindByUID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("FindByUID() error = %v", err)
	}
	if u.Wallet != 50 {
		t.Errorf("final wallet = %d, want 50", u.Wallet)
	}
}

// TestTicketLifecycle walks the full scenario: wallet 500, issue a 205
// fare, validate once, validate again, then present a wrong key.
func TestTicketLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	tid := env.issueTicket(t, "u-1", 205)

	u, _ := env.store.FindByUID(context.Background(), "u-1")
	if u.Wallet != 295 {
		t.Fatalf("wallet after issuance = %d, want 295", u.Wallet)
	}
	tk, err := env.store.FindByTID(context.Background(), tid)
	if err != nil {
		t.Fatalf("FindByTID() error = %v", err)
	}
	if tk.Used {
		t.Fatal("freshly issued ticket marked used")
	}
	if tk.TokenPayload == "" {
		t.Fatal("ticket missing token payload")
	}
	// The embedded payload resolves back to this ticket.
	fields, err := token.NewCodec("test-token-secret").Decode(tk.TokenPayload)
	if err != nil || fields.TID != tid {
		t.Fatalf("payload decode = (%+v, %v), want tid %s", fields, err, tid)
	}

	rec := env.do(http.MethodPost, "/gate/validate", validateBody(tid, "gate-1"),
		map[string]string{"x-api-key": gateKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("first validate = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["ok"] != true {
		t.Fatalf("first validate body: %v", body)
	}

	rec = env.do(http.MethodPost, "/gate/validate", validateBody(tid, "gate-2"),
		map[string]string{"x-api-key": gateKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second validate = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["err"] != "already used" {
		t.Errorf("second validate err = %v, want already used", body["err"])
	}

	rec = env.do(http.MethodPost, "/gate/validate", validateBody(tid, "gate-3"),
		map[string]string{"x-api-key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key = %d, want 401", rec.Code)
	}
}

func TestIssueInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	rec := env.do(http.MethodPost, "/tickets",
		`{"uid":"u-1","meta":{"source":"A","destination":"B","amount":501,"bookingMethod":"wallet"}}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["err"] != "insufficient funds" {
		t.Errorf("err = %v, want insufficient funds", body["err"])
	}
	// Nothing was debited and nothing was written.
	u, _ := env.store.FindByUID(context.Background(), "u-1")
	if u.Wallet != 500 {
		t.Errorf("wallet = %d, want 500", u.Wallet)
	}
	tickets, _ := env.store.ListByUser(context.Background(), "u-1")
	if len(tickets) != 0 {
		t.Errorf("tickets written on refused issuance: %d", len(tickets))
	}
}

func TestIssueGatewayFundedSkipsWallet(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	rec := env.do(http.MethodPost, "/tickets",
		`{"uid":"u-1","meta":{"source":"A","destination":"B","amount":9000,"bookingMethod":"gateway"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}
	u, _ := env.store.FindByUID(context.Background(), "u-1")
	if u.Wallet != 500 {
		t.Errorf("gateway booking touched wallet: %d", u.Wallet)
	}
}

// failingTicketStore refuses inserts to drive the compensation path.
type failingTicketStore struct {
	repository.TicketStore
}

func (f *failingTicketStore) Insert(ctx context.Context, t model.Ticket) error {
	return errors.New("store unavailable")
}

func TestIssueCompensatesDebitOnInsertFailure(t *testing.T) {
	mem := repository.NewMemoryStore(500)
	env := newTestEnvWithStores(t, mem, &failingTicketStore{TicketStore: mem})
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	rec := env.do(http.MethodPost, "/tickets",
		`{"uid":"u-1","meta":{"source":"A","destination":"B","amount":205,"bookingMethod":"wallet"}}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500 (%s)", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["err"] != "issuance failed" {
		t.Errorf("err = %v, want issuance failed", body["err"])
	}
	// The debit was credited back.
	u, _ := mem.FindByUID(context.Background(), "u-1")
	if u.Wallet != 500 {
		t.Errorf("wallet after compensation = %d, want 500", u.Wallet)
	}
}

func TestValidateAuthPrecedence(t *testing.T) {
	env := newTestEnv(t)

	// Wrong key on a nonexistent tid: unauthorized, not invalid tid.
	rec := env.do(http.MethodPost, "/gate/validate", validateBody("T-ghost", "gate-1"),
		map[string]string{"x-api-key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	if body := decodeBody(t, rec); body["err"] != "unauthorized" {
		t.Errorf("err = %v, want unauthorized", body["err"])
	}

	// Missing key behaves the same.
	rec = env.do(http.MethodPost, "/gate/validate", validateBody("T-ghost", "gate-1"), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key = %d, want 401", rec.Code)
	}

	// Wrong key against a real unused ticket must not consume it.
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)
	tid := env.issueTicket(t, "u-1", 100)
	rec = env.do(http.MethodPost, "/gate/validate", validateBody(tid, "gate-1"),
		map[string]string{"x-api-key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	tk, _ := env.store.FindByTID(context.Background(), tid)
	if tk.Used {
		t.Error("unauthorized call consumed the ticket")
	}
}

func TestValidateUnknownAndExpired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/gate/validate", validateBody("T-ghost", "gate-1"),
		map[string]string{"x-api-key": gateKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tid = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["err"] != "invalid tid" {
		t.Errorf("err = %v, want invalid tid", body["err"])
	}

	// Plant an already expired ticket directly in the store.
	now := time.Now().UTC()
	expired := model.Ticket{
		TID: "T-expired", UID: "u-1", Source: "A", Destination: "B",
		ClassType: "standard", Count: 1, Amount: 100,
		BookingMethod: model.BookingMethodWallet, TokenPayload: "p",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := env.store.Insert(context.Background(), expired); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	rec = env.do(http.MethodPost, "/gate/validate", validateBody("T-expired", "gate-1"),
		map[string]string{"x-api-key": gateKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expired = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["err"] != "expired" {
		t.Errorf("err = %v, want expired", body["err"])
	}
	tk, _ := env.store.FindByTID(context.Background(), "T-expired")
	if tk.Used {
		t.Error("expired classification wrote ticket state")
	}
}

// TestValidateConcurrentAtMostOnce replays a cloned token at many
// gates at once through the full HTTP stack: exactly one grant.
func TestValidateConcurrentAtMostOnce(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)
	tid := env.issueTicket(t, "u-1", 100)

	const n = 32
	codes := make(chan int, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			rec := env.do(http.MethodPost, "/gate/validate", validateBody(tid, "gate-x"),
				map[string]string{"x-api-key": gateKey})
			codes <- rec.Code
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	grants := 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			grants++
		case http.StatusBadRequest:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if grants != 1 {
		t.Errorf("granted %d times, want exactly 1", grants)
	}
}

func TestListTickets(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	rec := env.do(http.MethodGet, "/users/u-1/tickets", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if items, ok := body["tickets"].([]any); !ok || len(items) != 0 {
		t.Errorf("expected empty ticket list, got %v", body["tickets"])
	}

	first := env.issueTicket(t, "u-1", 50)
	second := env.issueTicket(t, "u-1", 60)

	rec = env.do(http.MethodGet, "/users/u-1/tickets", "", nil)
	body = decodeBody(t, rec)
	items, ok := body["tickets"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 tickets, got %v", body["tickets"])
	}
	got := make([]string, 0, 2)
	for _, it := range items {
		m := it.(map[string]any)
		got = append(got, m["tid"].(string))
	}
	if got[0] != second || got[1] != first {
		t.Errorf("want newest first [%s %s], got %v", second, first, got)
	}
}

// TestConcurrentIssuanceNoDebitLoss issues two wallet-funded tickets
// concurrently; the final balance reflects both fares exactly.
func TestConcurrentIssuanceNoDebitLoss(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/users", `{"uid":"u-1"}`, nil)

	var wg sync.WaitGroup
	for _, amount := range []int64{205, 150} {
		wg.Add(1)
		go func(a int64) {
			defer wg.Done()
			rec := env.do(http.MethodPost, "/tickets",
				`{"uid":"u-1","meta":{"source":"A","destination":"B","amount":`+jsonInt(a)+`,"bookingMethod":"wallet"}}`, nil)
			if rec.Code != http.StatusOK {
				t.Errorf("issue(%d) = %d: %s", a, rec.Code, rec.Body.String())
			}
		}(amount)
	}
	wg.Wait()

	u, _ := env.store.FindByUID(context.Background(), "u-1")
	if want := int64(500 - 205 - 150); u.Wallet != want {
		t.Errorf("final wallet = %d, want %d", u.Wallet, want)
	}
}
