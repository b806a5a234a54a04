package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/dto"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/config"
	"tableflow/internal/xpkg/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Storage: config.Storage{Driver: "memory"},
		Auth: config.Auth{
			JWTSecret:     "test-secret",
			SessionTTLMin: 180,
			StaffTTLMin:   720,
			QRTTLMin:      5,
		},
	}
	s := NewServer(context.Background(), context.Background(), cfg,
		&core.HubParams{Port: 0}, logger.NewNop())
	require.NoError(t, s.configure())

	ts := httptest.NewServer(s.mux)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestFullServiceFlow(t *testing.T) {
	ts := newTestServer(t)

	// Manager signs in with the seeded dev account.
	var login dto.ManagerLoginResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "",
		dto.ManagerLoginRequest{Username: "admin", Password: "admin"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, login.Token)

	// Opens a shift, receiving the staff QR.
	var shift dto.ShiftResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/shifts/open", login.Token,
		dto.OpenShiftRequest{OpenedCash: 100}, &shift)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, shift.QRToken)

	// A cook logs in with the QR.
	var staff dto.StaffLoginResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/staff/login", "",
		dto.StaffLoginRequest{QRToken: shift.QRToken, StaffName: "Ainur", Role: models.RoleKitchen}, &staff)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A customer joins a table and places an order.
	var join dto.JoinTableResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions", "",
		dto.JoinTableRequest{TableID: "table-1"}, &join)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order models.Order
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/orders", join.Token,
		dto.CreateOrderRequest{Items: []dto.OrderItemRequest{
			{Name: "Plov", Quantity: 2, Price: 9.50},
		}}, &order)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, order.Items, 1)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)

	// The cook starts and finishes the item.
	itemURL := fmt.Sprintf("%s/api/orders/%s/items/%s/status", ts.URL, order.OrderNumber, order.Items[0].ItemID)
	var tr dto.TransitionResponse
	// With the only item in progress, the derived order status is preparing.
	resp = doJSON(t, http.MethodPost, itemURL, staff.Token,
		dto.ItemStatusRequest{Status: models.ItemStatusInProgress}, &tr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.OrderStatusPreparing, tr.Order.Status)

	resp = doJSON(t, http.MethodPost, itemURL, staff.Token,
		dto.ItemStatusRequest{Status: models.ItemStatusReady}, &tr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.OrderStatusReady, tr.Order.Status)

	// Re-applying the same status is a successful no-op.
	resp = doJSON(t, http.MethodPost, itemURL, staff.Token,
		dto.ItemStatusRequest{Status: models.ItemStatusReady}, &tr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, tr.NoOp)

	// The cook cannot serve; the manager can.
	resp = doJSON(t, http.MethodPost, itemURL, staff.Token,
		dto.ItemStatusRequest{Status: models.ItemStatusServed}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, itemURL, login.Token,
		dto.ItemStatusRequest{Status: models.ItemStatusServed}, &tr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.OrderStatusServed, tr.Order.Status)

	// The customer polls the snapshot with the event log.
	var detail dto.OrderDetailResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/orders/"+order.OrderNumber, join.Token, nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, detail.Events, 3)

	// Manager closes the order out.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/orders/"+order.OrderNumber+"/close", login.Token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRejections(t *testing.T) {
	ts := newTestServer(t)

	// No credential.
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/kitchen/orders", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown credential.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/kitchen/orders", "deadbeefdeadbeefdeadbeefdeadbeef", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Customers cannot open shifts.
	var join dto.JoinTableResponse
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions", "",
		dto.JoinTableRequest{TableID: "table-2"}, &join)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/shifts/open", join.Token,
		dto.OpenShiftRequest{}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestQueryTokenOnlyAcceptedByStream(t *testing.T) {
	ts := newTestServer(t)

	var login dto.ManagerLoginResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "",
		dto.ManagerLoginRequest{Username: "admin", Password: "admin"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A valid credential in the query string is not an accepted form on
	// regular API routes.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/kitchen/orders?token="+login.Token, "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The SSE endpoint accepts it because EventSource cannot set headers.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/streams?channel=admin:default&token="+login.Token, nil)
	require.NoError(t, err)
	streamResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, streamResp.StatusCode)
	streamResp.Body.Close()
}

func TestStaffTokenDiesWithShift(t *testing.T) {
	ts := newTestServer(t)

	var login dto.ManagerLoginResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "",
		dto.ManagerLoginRequest{Username: "admin", Password: "admin"}, &login)

	var shift dto.ShiftResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/shifts/open", login.Token,
		dto.OpenShiftRequest{}, &shift)

	var staff dto.StaffLoginResponse
	doJSON(t, http.MethodPost, ts.URL+"/api/staff/login", "",
		dto.StaffLoginRequest{QRToken: shift.QRToken, StaffName: "Dana", Role: models.RoleWaiter}, &staff)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/kitchen/orders", staff.Token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/shifts/close", login.Token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/kitchen/orders", staff.Token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
