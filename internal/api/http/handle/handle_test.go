package handle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casaluna/internal/auth"
	"casaluna/internal/events"
	"casaluna/internal/order/app/core"
	"casaluna/internal/order/app/services"
	"casaluna/internal/order/domain/dto"
	"casaluna/internal/order/domain/models"
	"casaluna/internal/xpkg/logger"
)

const adminToken = "sesame"

type fakeOrderRepo struct {
	catalog map[int64]float64
	orders  map[int64]models.Order
	nextID  int64
	seq     int

	// afterGet, when set, runs once during the next GetByID before the
	// order is returned.
	afterGet func()
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		catalog: map[int64]float64{1: 5.00, 2: 3.50},
		orders:  make(map[int64]models.Order),
	}
}

func (f *fakeOrderRepo) Create(_ context.Context, req dto.CreateOrderRequest) (models.Order, error) {
	f.nextID++
	f.seq++
	now := time.Now().UTC()
	order := models.Order{
		ID:            f.nextID,
		OrderNumber:   fmt.Sprintf("%s-%03d", now.Format("20060102"), f.seq),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Type:          req.Type,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, item := range req.Items {
		price, ok := f.catalog[item.MenuItemID]
		if !ok {
			return models.Order{}, core.ErrMenuItemNotFound
		}
		line := price * float64(item.Quantity)
		order.Items = append(order.Items, models.OrderItem{
			OrderID:    order.ID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  price,
			LineTotal:  line,
			Position:   i + 1,
		})
		order.TotalAmount += line
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id int64) (models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	// The hook commits a concurrent change after this read took its view.
	if hook := f.afterGet; hook != nil {
		f.afterGet = nil
		hook()
	}
	return order, nil
}

func (f *fakeOrderRepo) GetByNumber(_ context.Context, orderNumber string) (models.Order, error) {
	for _, order := range f.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return models.Order{}, core.ErrOrderNotFound
}

func (f *fakeOrderRepo) List(_ context.Context) ([]models.Order, error) {
	out := make([]models.Order, 0, len(f.orders))
	for _, order := range f.orders {
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id int64, status, _ string) error {
	order, ok := f.orders[id]
	if !ok {
		return core.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	f.orders[id] = order
	return nil
}

func (f *fakeOrderRepo) MarkCollected(_ context.Context, id int64, _ string) error {
	order, ok := f.orders[id]
	if !ok {
		return core.ErrOrderNotFound
	}
	if !strings.EqualFold(order.Status, models.StatusReady) {
		return core.ErrInvalidState
	}
	order.Status = models.StatusCollected
	order.UpdatedAt = time.Now().UTC()
	f.orders[id] = order
	return nil
}

type env struct {
	ts   *httptest.Server
	svc  *services.OrderService
	bus  *events.Bus
	repo *fakeOrderRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repo := newFakeOrderRepo()
	bus := events.NewBus()
	svc := services.NewOrderService(repo, bus, logger.Discard())

	orderHandler := NewOrderHandler(svc, logger.Discard())
	adminHandler := NewAdminHandler(svc, auth.NewVerifier(adminToken), logger.Discard())
	streamHandler := NewStreamHandler(svc, bus, 50*time.Millisecond, logger.Discard())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", orderHandler.Create())
	mux.HandleFunc("GET /api/orders/track", orderHandler.Track())
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.Get())
	mux.HandleFunc("POST /api/orders/{id}/collect", orderHandler.Collect())
	mux.HandleFunc("GET /api/orders/{id}/events", streamHandler.OrderEvents())
	mux.HandleFunc("GET /api/admin/orders", adminHandler.Secure(adminHandler.List()))
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", adminHandler.Secure(adminHandler.UpdateStatus()))
	mux.HandleFunc("GET /api/admin/orders/events", adminHandler.Secure(streamHandler.AdminEvents()))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &env{ts: ts, svc: svc, bus: bus, repo: repo}
}

func (e *env) createOrder(t *testing.T) models.Order {
	t.Helper()
	order, err := e.svc.Create(context.Background(), dto.CreateOrderRequest{
		CustomerName:  "Ada",
		CustomerPhone: "555-0134",
		Items:         []dto.ItemRequest{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	return order
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateOrderEndpoint(t *testing.T) {
	e := newEnv(t)

	resp := postJSON(t, e.ts.URL+"/api/orders", dto.CreateOrderRequest{
		CustomerName:  "Ada",
		CustomerPhone: "555-0134",
		Items:         []dto.ItemRequest{{MenuItemID: 1, Quantity: 2}, {MenuItemID: 2, Quantity: 1}},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	assert.InDelta(t, 13.50, body["total_amount"], 1e-9)
	assert.Regexp(t, `^\d{8}-001$`, body["order_no"])
	assert.Equal(t, "pending", body["status"])
}

func TestCreateOrderValidationItemizesField(t *testing.T) {
	e := newEnv(t)

	resp := postJSON(t, e.ts.URL+"/api/orders", dto.CreateOrderRequest{
		CustomerName:  "",
		CustomerPhone: "555-0134",
		Items:         []dto.ItemRequest{{MenuItemID: 1, Quantity: 1}},
	})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "customer_name", body["field"])
}

func TestCreateOrderMalformedJSON(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Post(e.ts.URL+"/api/orders", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrderUnknownMenuItem(t *testing.T) {
	e := newEnv(t)

	resp := postJSON(t, e.ts.URL+"/api/orders", dto.CreateOrderRequest{
		CustomerName:  "Ada",
		CustomerPhone: "555-0134",
		Items:         []dto.ItemRequest{{MenuItemID: 99, Quantity: 1}},
	})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTrackEndpoint(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	resp, err := http.Get(e.ts.URL + "/api/orders/track?order_no=" + order.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, order.OrderNumber, body["order_no"])
	assert.Equal(t, "pending", body["status"])

	resp, err = http.Get(e.ts.URL + "/api/orders/track?order_no=20000101-001")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCollectEndpoint(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	url := fmt.Sprintf("%s/api/orders/%d/collect", e.ts.URL, order.ID)

	// Not ready yet.
	resp := postJSON(t, url, dto.CollectRequest{OrderNumber: order.OrderNumber, CustomerPhone: order.CustomerPhone})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	_, err := e.svc.UpdateStatus(context.Background(), order.ID, models.StatusReady)
	require.NoError(t, err)

	// Wrong phone.
	resp = postJSON(t, url, dto.CollectRequest{OrderNumber: order.OrderNumber, CustomerPhone: "000"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Correct details.
	resp = postJSON(t, url, dto.CollectRequest{OrderNumber: order.OrderNumber, CustomerPhone: order.CustomerPhone})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "collected", body["status"])

	// Unknown order.
	resp = postJSON(t, e.ts.URL+"/api/orders/999/collect", dto.CollectRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/admin/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/admin/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminListAndUpdateStatus(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/admin/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Len(t, body["orders"], 1)

	b, err := json.Marshal(dto.UpdateStatusRequest{Status: "ready"})
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/api/admin/orders/%d/status", e.ts.URL, order.ID), bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, "ready", body["status"])

	// Invalid status value.
	b, err = json.Marshal(dto.UpdateStatusRequest{Status: "cooked"})
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/api/admin/orders/%d/status", e.ts.URL, order.ID), bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data string
}

// readSSE reads the next event from the stream, skipping comment pings.
func readSSE(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var e sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event: "):
			e.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			e.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if e.name != "" || e.data != "" {
				return e
			}
		}
	}
}

func streamGet(t *testing.T, url string, headers map[string]string) (*http.Response, *bufio.Reader) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp, bufio.NewReader(resp.Body)
}

func TestOrderStreamFirstMessageIsSnapshot(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	resp, r := streamGet(t, fmt.Sprintf("%s/api/orders/%d/events", e.ts.URL, order.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	first := readSSE(t, r)
	assert.Equal(t, "snapshot", first.name)

	var snap models.Order
	require.NoError(t, json.Unmarshal([]byte(first.data), &snap))
	assert.Equal(t, order.OrderNumber, snap.OrderNumber)
	assert.Equal(t, models.StatusPending, snap.Status)
}

func TestOrderStreamReceivesChanges(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	_, r := streamGet(t, fmt.Sprintf("%s/api/orders/%d/events", e.ts.URL, order.ID), nil)
	readSSE(t, r) // catch-up snapshot

	// Wait for the subscriber registration before mutating.
	require.Eventually(t, func() bool {
		return e.bus.OrderObserverCount(order.ID) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := e.svc.UpdateStatus(context.Background(), order.ID, models.StatusReady)
	require.NoError(t, err)

	next := readSSE(t, r)
	assert.Equal(t, "snapshot", next.name)

	var snap models.Order
	require.NoError(t, json.Unmarshal([]byte(next.data), &snap))
	assert.Equal(t, models.StatusReady, snap.Status)
}

func TestOrderStreamChangeDuringCatchUpIsNotLost(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	// The transition commits and publishes while the handler is still
	// reading the catch-up snapshot. The observer must already be
	// registered at that point, or the update is delivered to nobody.
	e.repo.afterGet = func() {
		updated := e.repo.orders[order.ID]
		updated.Status = models.StatusReady
		e.repo.orders[order.ID] = updated
		e.bus.PublishOrder(order.ID, updated)
	}

	_, r := streamGet(t, fmt.Sprintf("%s/api/orders/%d/events", e.ts.URL, order.ID), nil)

	first := readSSE(t, r)
	assert.Equal(t, "snapshot", first.name)
	var snap models.Order
	require.NoError(t, json.Unmarshal([]byte(first.data), &snap))
	assert.Equal(t, models.StatusPending, snap.Status)

	next := readSSE(t, r)
	require.NoError(t, json.Unmarshal([]byte(next.data), &snap))
	assert.Equal(t, models.StatusReady, snap.Status)
}

func TestOrderStreamUnknownOrder(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/orders/42/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminStreamAckAndEvents(t *testing.T) {
	e := newEnv(t)

	// The token query parameter works for EventSource clients.
	resp, r := streamGet(t, e.ts.URL+"/api/admin/orders/events?token="+adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ack := readSSE(t, r)
	assert.Equal(t, "connected", ack.name)

	require.Eventually(t, func() bool {
		return e.bus.AdminCount() == 1
	}, time.Second, 5*time.Millisecond)

	order := e.createOrder(t)

	created := readSSE(t, r)
	assert.Equal(t, "order_created", created.name)
	var payload dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal([]byte(created.data), &payload))
	assert.Equal(t, order.OrderNumber, payload.OrderNumber)

	_, err := e.svc.UpdateStatus(context.Background(), order.ID, models.StatusReady)
	require.NoError(t, err)
	updated := readSSE(t, r)
	assert.Equal(t, "status_updated", updated.name)
}

func TestAdminStreamRequiresToken(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.ts.URL + "/api/admin/orders/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamSendsPings(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t)

	_, r := streamGet(t, fmt.Sprintf("%s/api/orders/%d/events", e.ts.URL, order.ID), nil)
	readSSE(t, r)

	// The 50ms test ping interval means a comment line shows up quickly.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("no ping received")
		default:
		}
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, ": ping") {
			return
		}
	}
}
